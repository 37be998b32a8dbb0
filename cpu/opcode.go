package cpu

import (
	"fmt"

	"github.com/ezrec/hexvm/symbol"
)

// Word is the machine word: registers, memory cells and immediates.
type Word = uint64

// Register is one of the nine machine registers.
type Register int

const (
	REG_AX = Register(0) // ax
	REG_BX = Register(1) // bx
	REG_CX = Register(2) // cx
	REG_DX = Register(3) // dx
	REG_SI = Register(4) // si
	REG_DI = Register(5) // di
	REG_SP = Register(6) // sp
	REG_BP = Register(7) // bp
	REG_IP = Register(8) // ip

	REGISTER_COUNT = 9
)

var registerName = [REGISTER_COUNT]string{
	REG_AX: "ax",
	REG_BX: "bx",
	REG_CX: "cx",
	REG_DX: "dx",
	REG_SI: "si",
	REG_DI: "di",
	REG_SP: "sp",
	REG_BP: "bp",
	REG_IP: "ip",
}

// regMap is the fixed set of register names known to the assembler.
var regMap = map[string]Register{
	"ax": REG_AX,
	"bx": REG_BX,
	"cx": REG_CX,
	"dx": REG_DX,
	"si": REG_SI,
	"di": REG_DI,
	"sp": REG_SP,
	"bp": REG_BP,
	"ip": REG_IP,
}

// RegisterOf looks up a register by name.
func RegisterOf(name string) (reg Register, ok bool) {
	reg, ok = regMap[name]
	return
}

func (reg Register) String() string {
	if reg < 0 || reg >= REGISTER_COUNT {
		return fmt.Sprintf("Register(%d)", int(reg))
	}
	return registerName[reg]
}

// CodeOp is an instruction opcode.
type CodeOp int

const (
	OP_MOV   = CodeOp(0)  // mov
	OP_CMP   = CodeOp(1)  // cmp
	OP_JMP   = CodeOp(2)  // jmp
	OP_JE    = CodeOp(3)  // je
	OP_JNE   = CodeOp(4)  // jne
	OP_JL    = CodeOp(5)  // jl
	OP_JLE   = CodeOp(6)  // jle
	OP_JG    = CodeOp(7)  // jg
	OP_JGE   = CodeOp(8)  // jge
	OP_CALL  = CodeOp(9)  // call
	OP_RET   = CodeOp(10) // ret
	OP_PUSH  = CodeOp(11) // push
	OP_POP   = CodeOp(12) // pop
	OP_ADD   = CodeOp(13) // add
	OP_SUB   = CodeOp(14) // sub
	OP_INC   = CodeOp(15) // inc
	OP_DEC   = CodeOp(16) // dec
	OP_MUL   = CodeOp(17) // mul
	OP_DIV   = CodeOp(18) // div
	OP_MOD   = CodeOp(19) // mod
	OP_STR   = CodeOp(20) // str
	OP_PRINT = CodeOp(21) // print

	OP_COUNT = 22
)

var opName = [OP_COUNT]string{
	OP_MOV:   "mov",
	OP_CMP:   "cmp",
	OP_JMP:   "jmp",
	OP_JE:    "je",
	OP_JNE:   "jne",
	OP_JL:    "jl",
	OP_JLE:   "jle",
	OP_JG:    "jg",
	OP_JGE:   "jge",
	OP_CALL:  "call",
	OP_RET:   "ret",
	OP_PUSH:  "push",
	OP_POP:   "pop",
	OP_ADD:   "add",
	OP_SUB:   "sub",
	OP_INC:   "inc",
	OP_DEC:   "dec",
	OP_MUL:   "mul",
	OP_DIV:   "div",
	OP_MOD:   "mod",
	OP_STR:   "str",
	OP_PRINT: "print",
}

func (op CodeOp) String() string {
	if op < 0 || op >= OP_COUNT {
		return fmt.Sprintf("CodeOp(%d)", int(op))
	}
	return opName[op]
}

// IsJump is true for the unconditional and conditional jumps.
func (op CodeOp) IsJump() bool {
	return op >= OP_JMP && op <= OP_JGE
}

// AddressMode selects how an Address is resolved.
type AddressMode int

const (
	ADDR_REGISTER = AddressMode(0) // ax
	ADDR_INDIRECT = AddressMode(1) // [ax]
	ADDR_MEMORY   = AddressMode(2) // [n]
	ADDR_LABEL    = AddressMode(3) // name
)

// Address is a readable and writable operand location.
type Address struct {
	Mode     AddressMode
	Register Register      // ADDR_REGISTER, ADDR_INDIRECT
	Index    Word          // ADDR_MEMORY
	Label    symbol.Symbol // ADDR_LABEL
}

// Reg is the register-direct address of reg.
func Reg(reg Register) Address {
	return Address{Mode: ADDR_REGISTER, Register: reg}
}

// Indirect addresses memory at the index held in reg.
func Indirect(reg Register) Address {
	return Address{Mode: ADDR_INDIRECT, Register: reg}
}

// Mem addresses memory at a fixed index.
func Mem(index Word) Address {
	return Address{Mode: ADDR_MEMORY, Index: index}
}

// Label addresses the label table slot of a symbol.
func Label(sym symbol.Symbol) Address {
	return Address{Mode: ADDR_LABEL, Label: sym}
}

// Value reads the contents of the address.
func (addr Address) Value() Value {
	return Value{Kind: VALUE_ADDRESS, Address: addr}
}

// Format renders the address, resolving label names through syms if set.
func (addr Address) Format(syms *symbol.Table) string {
	switch addr.Mode {
	case ADDR_REGISTER:
		return addr.Register.String()
	case ADDR_INDIRECT:
		return "[" + addr.Register.String() + "]"
	case ADDR_MEMORY:
		return fmt.Sprintf("[%#x]", addr.Index)
	case ADDR_LABEL:
		if syms != nil {
			if name, ok := syms.Resolve(addr.Label); ok {
				return name
			}
		}
		return fmt.Sprintf("label#%d", addr.Label)
	}
	return fmt.Sprintf("AddressMode(%d)", int(addr.Mode))
}

func (addr Address) String() string {
	return addr.Format(nil)
}

// ValueKind selects how a Value is resolved.
type ValueKind int

const (
	VALUE_ADDRESS   = ValueKind(0) // contents of an Address
	VALUE_IMMEDIATE = ValueKind(1) // unsigned immediate
	VALUE_SIGNED    = ValueKind(2) // signed immediate, relative in jumps
)

// Value is an operand source.
type Value struct {
	Kind      ValueKind
	Address   Address // VALUE_ADDRESS
	Immediate Word    // VALUE_IMMEDIATE
	Signed    int64   // VALUE_SIGNED
}

// Imm is an unsigned immediate.
func Imm(value Word) Value {
	return Value{Kind: VALUE_IMMEDIATE, Immediate: value}
}

// Rel is a signed immediate. As a jump target it is relative to ip.
func Rel(value int64) Value {
	return Value{Kind: VALUE_SIGNED, Signed: value}
}

// Format renders the value, resolving label names through syms if set.
func (val Value) Format(syms *symbol.Table) string {
	switch val.Kind {
	case VALUE_ADDRESS:
		return val.Address.Format(syms)
	case VALUE_IMMEDIATE:
		return fmt.Sprintf("%d", val.Immediate)
	case VALUE_SIGNED:
		return fmt.Sprintf("%+d", val.Signed)
	}
	return fmt.Sprintf("ValueKind(%d)", int(val.Kind))
}

func (val Value) String() string {
	return val.Format(nil)
}

// Sequence is one decoded instruction. The operand fields in use are
// fixed by Op:
//
//	mov, add, sub           Target, A
//	cmp                     A, B
//	jmp, je, ... jge        A
//	call, str               Symbol
//	push, mul, div, mod     A
//	pop, inc, dec           Target
//	print                   Target, Length
type Sequence struct {
	Op     CodeOp
	Target Address
	A      Value
	B      Value
	Symbol symbol.Symbol
	Length Word
}

// MakeMov creates `mov target, value`.
func MakeMov(target Address, value Value) Sequence {
	return Sequence{Op: OP_MOV, Target: target, A: value}
}

// MakeCmp creates `cmp a, b`.
func MakeCmp(a, b Value) Sequence {
	return Sequence{Op: OP_CMP, A: a, B: b}
}

// MakeJump creates one of the jump family.
func MakeJump(op CodeOp, target Value) Sequence {
	if !op.IsJump() {
		panic("not a jump opcode")
	}
	return Sequence{Op: op, A: target}
}

// MakeCall creates `call label`.
func MakeCall(label symbol.Symbol) Sequence {
	return Sequence{Op: OP_CALL, Symbol: label}
}

// MakeRet creates `ret`.
func MakeRet() Sequence {
	return Sequence{Op: OP_RET}
}

// MakePush creates `push value`.
func MakePush(value Value) Sequence {
	return Sequence{Op: OP_PUSH, A: value}
}

// MakePop creates `pop target`.
func MakePop(target Address) Sequence {
	return Sequence{Op: OP_POP, Target: target}
}

// MakeAlu creates `add target, value` or `sub target, value`.
func MakeAlu(op CodeOp, target Address, value Value) Sequence {
	if op != OP_ADD && op != OP_SUB {
		panic("not an alu opcode")
	}
	return Sequence{Op: op, Target: target, A: value}
}

// MakeStep creates `inc target` or `dec target`.
func MakeStep(op CodeOp, target Address) Sequence {
	if op != OP_INC && op != OP_DEC {
		panic("not a step opcode")
	}
	return Sequence{Op: op, Target: target}
}

// MakeAccumulate creates `mul`, `div` or `mod`, which act on ax.
func MakeAccumulate(op CodeOp, value Value) Sequence {
	if op != OP_MUL && op != OP_DIV && op != OP_MOD {
		panic("not an accumulator opcode")
	}
	return Sequence{Op: op, A: value}
}

// MakeStr creates `str "literal"` for an interned literal.
func MakeStr(literal symbol.Symbol) Sequence {
	return Sequence{Op: OP_STR, Symbol: literal}
}

// MakePrint creates `print target, length`.
func MakePrint(target Address, length Word) Sequence {
	return Sequence{Op: OP_PRINT, Target: target, Length: length}
}

// Labels returns the label symbols an instruction refers to.
func (seq Sequence) Labels() (labels []symbol.Symbol) {
	if seq.Op == OP_CALL {
		labels = append(labels, seq.Symbol)
	}
	if seq.Target.Mode == ADDR_LABEL && seq.usesTarget() {
		labels = append(labels, seq.Target.Label)
	}
	for _, val := range []Value{seq.A, seq.B} {
		if val.Kind == VALUE_ADDRESS && val.Address.Mode == ADDR_LABEL {
			labels = append(labels, val.Address.Label)
		}
	}
	return
}

func (seq Sequence) usesTarget() bool {
	switch seq.Op {
	case OP_MOV, OP_ADD, OP_SUB, OP_POP, OP_INC, OP_DEC, OP_PRINT:
		return true
	}
	return false
}

// Format renders the instruction as assembly, resolving symbols through
// syms if set.
func (seq Sequence) Format(syms *symbol.Table) string {
	op := seq.Op.String()
	switch seq.Op {
	case OP_MOV, OP_ADD, OP_SUB:
		return fmt.Sprintf("%v %v, %v", op, seq.Target.Format(syms), seq.A.Format(syms))
	case OP_CMP:
		return fmt.Sprintf("%v %v, %v", op, seq.A.Format(syms), seq.B.Format(syms))
	case OP_JMP, OP_JE, OP_JNE, OP_JL, OP_JLE, OP_JG, OP_JGE,
		OP_PUSH, OP_MUL, OP_DIV, OP_MOD:
		return fmt.Sprintf("%v %v", op, seq.A.Format(syms))
	case OP_POP, OP_INC, OP_DEC:
		return fmt.Sprintf("%v %v", op, seq.Target.Format(syms))
	case OP_CALL:
		return fmt.Sprintf("%v %v", op, Label(seq.Symbol).Format(syms))
	case OP_STR:
		if syms != nil {
			if text, ok := syms.Resolve(seq.Symbol); ok {
				return fmt.Sprintf("%v %v", op, quote(text))
			}
		}
		return fmt.Sprintf("%v str#%d", op, seq.Symbol)
	case OP_PRINT:
		return fmt.Sprintf("%v %v, %d", op, seq.Target.Format(syms), seq.Length)
	}
	return op
}

func (seq Sequence) String() string {
	return seq.Format(nil)
}
