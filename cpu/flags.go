package cpu

import (
	"math/bits"
)

// FlagSet holds the condition flags read by the conditional jumps.
type FlagSet struct {
	Sign     bool
	Carry    bool
	Zero     bool
	Overflow bool
}

func (fl FlagSet) String() (text string) {
	for _, flag := range []struct {
		name string
		set  bool
	}{
		{"sf", fl.Sign},
		{"cf", fl.Carry},
		{"zf", fl.Zero},
		{"of", fl.Overflow},
	} {
		if len(text) > 0 {
			text += " "
		}
		if flag.set {
			text += flag.name
		} else {
			text += "--"
		}
	}
	return
}

// Compare sets the flags for an unsigned three way comparison of a and b.
func (fl *FlagSet) Compare(a, b Word) {
	*fl = FlagSet{}
	switch {
	case a < b:
		fl.Sign = true
		fl.Carry = true
	case a == b:
		fl.Zero = true
	}
}

// Taken reports whether the jump opcode op branches under the flags.
func (fl FlagSet) Taken(op CodeOp) (taken bool) {
	switch op {
	case OP_JMP:
		taken = true
	case OP_JE:
		taken = fl.Zero
	case OP_JNE:
		taken = !fl.Zero
	case OP_JL:
		taken = !fl.Zero && fl.Sign
	case OP_JLE:
		taken = fl.Zero || fl.Sign
	case OP_JG:
		taken = !fl.Zero && !fl.Sign
	case OP_JGE:
		taken = fl.Zero || !fl.Sign
	}
	return
}

// result sets the zero and sign flags from an arithmetic result.
func (fl *FlagSet) result(value Word) Word {
	fl.Zero = value == 0
	fl.Sign = (value >> (WORD_BITS - 1)) != 0
	return value
}

// Add returns a + b. Carry is the wrapped carry out; overflow is set when
// a < b.
func (fl *FlagSet) Add(a, b Word) Word {
	sum, carry := bits.Add64(a, b, 0)
	fl.Carry = carry != 0
	fl.Overflow = a < b
	return fl.result(sum)
}

// Sub returns a - b. Overflow is the borrow; carry is set when a < b.
func (fl *FlagSet) Sub(a, b Word) Word {
	diff, borrow := bits.Sub64(a, b, 0)
	fl.Overflow = borrow != 0
	fl.Carry = a < b
	return fl.result(diff)
}

// Mul returns the low word of a * b. Carry and overflow are set when the
// high word is non-zero.
func (fl *FlagSet) Mul(a, b Word) Word {
	hi, lo := bits.Mul64(a, b)
	fl.Carry = hi != 0
	fl.Overflow = hi != 0
	return fl.result(lo)
}

// Div returns a / b, or ErrDivideByZero.
func (fl *FlagSet) Div(a, b Word) (quo Word, err error) {
	if b == 0 {
		err = ErrDivideByZero
		return
	}
	fl.Carry = false
	fl.Overflow = false
	quo = fl.result(a / b)
	return
}

// Mod returns a % b, or ErrDivideByZero.
func (fl *FlagSet) Mod(a, b Word) (rem Word, err error) {
	if b == 0 {
		err = ErrDivideByZero
		return
	}
	fl.Carry = false
	fl.Overflow = false
	rem = fl.result(a % b)
	return
}
