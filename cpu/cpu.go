// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"os"
	"unicode/utf8"

	"github.com/ezrec/hexvm/symbol"
	"github.com/ezrec/hexvm/translate"
)

// Cpu is the execution engine for an assembled Program.
type Cpu struct {
	Verbose bool      // Set to enable verbose logging.
	Output  io.Writer // Destination of print, os.Stdout if nil.

	Program  *Program               // Instructions being executed.
	Register [REGISTER_COUNT]Word   // Register file.
	Flag     FlagSet                // Condition flags.
	Memory   []Word                 // Word addressed memory, stack at the top.
	Label    map[symbol.Symbol]Word // Label slots, copied from Program.

	Ticks int // Instructions executed since reset.

	jumped bool // Set when the executing instruction wrote ip.
}

// NewCpu creates a CPU for prog with size words of memory, and resets it.
func NewCpu(prog *Program, size uint) (cpu *Cpu) {
	if prog == nil {
		prog = NewProgram()
	}

	cpu = &Cpu{
		Program: prog,
		Memory:  make([]Word, size),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(sysEquate)
}

// Reset the CPU state.
// - Clears memory, flags and registers.
// - Points sp and bp at the top of memory.
// - Restores the label slots from the program.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory)
	clear(cpu.Register[:])
	cpu.Flag = FlagSet{}
	cpu.Ticks = 0

	cpu.Register[REG_SP] = Word(len(cpu.Memory))
	cpu.Register[REG_BP] = Word(len(cpu.Memory))

	cpu.Label = maps.Clone(cpu.Program.Label)
	if cpu.Label == nil {
		cpu.Label = make(map[symbol.Symbol]Word)
	}
}

// Stack returns the stack view over memory.
func (cpu *Cpu) Stack() Stack {
	return Stack{Memory: cpu.Memory, Sp: &cpu.Register[REG_SP]}
}

// Done is true once ip has left the instruction sequence.
func (cpu *Cpu) Done() bool {
	return cpu.Register[REG_IP] >= Word(len(cpu.Program.Sequence))
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for reg := range Register(REGISTER_COUNT) {
		val := cpu.Register[reg]
		text += fmt.Sprintf("% 5s: %04X_%04X_%04X_%04X %v\n", reg.String(),
			(val>>48)&0xffff, (val>>32)&0xffff, (val>>16)&0xffff, val&0xffff,
			translate.Number(val))
	}
	text += fmt.Sprintf("% 5s: %v\n", "flags", cpu.Flag)
	text += fmt.Sprintf("% 5s: %v\n", "ticks", translate.Number(Word(cpu.Ticks)))

	return
}

// Run ticks the CPU until ip leaves the program or a fault occurs.
// There is no step limit: a program that never ends never returns.
func (cpu *Cpu) Run() (err error) {
	for {
		err = cpu.Tick()
		if errors.Is(err, ErrIpEmpty) {
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// Tick executes a single fetch-decode-execute cycle.
func (cpu *Cpu) Tick() (err error) {
	ip := cpu.Register[REG_IP]
	if ip >= Word(len(cpu.Program.Sequence)) {
		err = ErrIpEmpty
		return
	}

	seq := cpu.Program.Sequence[ip]

	err = cpu.Execute(seq)
	if err != nil {
		err = errors.Join(&ErrFault{Ip: ip, Sequence: seq}, err)
		return
	}

	cpu.Ticks++

	return
}

// Execute executes a single decoded instruction, then advances ip unless
// the instruction wrote it.
func (cpu *Cpu) Execute(seq Sequence) (err error) {
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Register[REG_IP], seq.Format(cpu.Program.Symbols))
	}

	cpu.jumped = false

	switch seq.Op {
	case OP_MOV:
		var val Word
		val, err = cpu.value(seq.A)
		if err != nil {
			return
		}
		err = cpu.write(seq.Target, val)
	case OP_CMP:
		var a, b Word
		a, err = cpu.value(seq.A)
		if err != nil {
			return
		}
		b, err = cpu.value(seq.B)
		if err != nil {
			return
		}
		cpu.Flag.Compare(a, b)
	case OP_JMP, OP_JE, OP_JNE, OP_JL, OP_JLE, OP_JG, OP_JGE:
		if !cpu.Flag.Taken(seq.Op) {
			break
		}
		var target Word
		target, err = cpu.jumpTarget(seq.A)
		if err != nil {
			return
		}
		cpu.setIp(target)
	case OP_CALL:
		target, ok := cpu.Label[seq.Symbol]
		if !ok {
			err = cpu.labelMissing(seq.Symbol)
			return
		}
		err = cpu.Stack().Push(cpu.Register[REG_IP])
		if err != nil {
			return
		}
		cpu.setIp(target)
	case OP_RET:
		var ret Word
		ret, err = cpu.Stack().Pop()
		if err != nil {
			return
		}
		// The return address is the call site; resume after it.
		cpu.setIp(ret + 1)
	case OP_PUSH:
		var val Word
		val, err = cpu.value(seq.A)
		if err != nil {
			return
		}
		err = cpu.Stack().Push(val)
	case OP_POP:
		var val Word
		val, err = cpu.Stack().Pop()
		if err != nil {
			return
		}
		err = cpu.write(seq.Target, val)
	case OP_ADD, OP_SUB, OP_INC, OP_DEC:
		var a, b Word
		a, err = cpu.read(seq.Target)
		if err != nil {
			return
		}
		b = 1
		if seq.Op == OP_ADD || seq.Op == OP_SUB {
			b, err = cpu.value(seq.A)
			if err != nil {
				return
			}
		}
		var out Word
		if seq.Op == OP_ADD || seq.Op == OP_INC {
			out = cpu.Flag.Add(a, b)
		} else {
			out = cpu.Flag.Sub(a, b)
		}
		err = cpu.write(seq.Target, out)
	case OP_MUL, OP_DIV, OP_MOD:
		var b Word
		b, err = cpu.value(seq.A)
		if err != nil {
			return
		}
		a := cpu.Register[REG_AX]
		var out Word
		switch seq.Op {
		case OP_MUL:
			out = cpu.Flag.Mul(a, b)
		case OP_DIV:
			out, err = cpu.Flag.Div(a, b)
		case OP_MOD:
			out, err = cpu.Flag.Mod(a, b)
		}
		if err != nil {
			return
		}
		cpu.setRegister(REG_AX, out)
	case OP_STR:
		err = cpu.pushString(seq.Symbol)
	case OP_PRINT:
		err = cpu.print(seq.Target, seq.Length)
	default:
		err = ErrOpcodeOp
	}

	if err != nil {
		return
	}

	if !cpu.jumped {
		cpu.Register[REG_IP]++
	}

	return
}

func (cpu *Cpu) setIp(ip Word) {
	cpu.Register[REG_IP] = ip
	cpu.jumped = true
}

func (cpu *Cpu) setRegister(reg Register, value Word) {
	if reg == REG_IP {
		cpu.setIp(value)
		return
	}
	cpu.Register[reg] = value
}

func (cpu *Cpu) labelMissing(sym symbol.Symbol) error {
	name, _ := cpu.Program.Symbols.Resolve(sym)
	return ErrLabelMissing(name)
}

// read returns the contents of an address.
func (cpu *Cpu) read(addr Address) (value Word, err error) {
	switch addr.Mode {
	case ADDR_REGISTER:
		value = cpu.Register[addr.Register]
	case ADDR_INDIRECT:
		value, err = cpu.load(cpu.Register[addr.Register])
	case ADDR_MEMORY:
		value, err = cpu.load(addr.Index)
	case ADDR_LABEL:
		var ok bool
		value, ok = cpu.Label[addr.Label]
		if !ok {
			err = cpu.labelMissing(addr.Label)
		}
	default:
		err = ErrOpcodeOp
	}
	return
}

// write replaces the contents of an address.
func (cpu *Cpu) write(addr Address, value Word) (err error) {
	switch addr.Mode {
	case ADDR_REGISTER:
		cpu.setRegister(addr.Register, value)
	case ADDR_INDIRECT:
		err = cpu.store(cpu.Register[addr.Register], value)
	case ADDR_MEMORY:
		err = cpu.store(addr.Index, value)
	case ADDR_LABEL:
		if _, ok := cpu.Label[addr.Label]; !ok {
			err = cpu.labelMissing(addr.Label)
			return
		}
		cpu.Label[addr.Label] = value
	default:
		err = ErrOpcodeOp
	}
	return
}

// value resolves an operand source. Signed immediates wrap to a Word.
func (cpu *Cpu) value(val Value) (value Word, err error) {
	switch val.Kind {
	case VALUE_ADDRESS:
		value, err = cpu.read(val.Address)
	case VALUE_IMMEDIATE:
		value = val.Immediate
	case VALUE_SIGNED:
		value = Word(val.Signed)
	default:
		err = ErrOpcodeOp
	}
	return
}

// jumpTarget resolves a jump operand; signed immediates are relative to ip.
func (cpu *Cpu) jumpTarget(val Value) (target Word, err error) {
	if val.Kind == VALUE_SIGNED {
		target = cpu.Register[REG_IP] + Word(val.Signed)
		return
	}
	return cpu.value(val)
}

// pushString pushes a literal packed WORD_BYTES per word, most significant
// byte first, last chunk first, so the text reads forward from sp.
func (cpu *Cpu) pushString(sym symbol.Symbol) (err error) {
	text, ok := cpu.Program.Symbols.Resolve(sym)
	if !ok {
		err = ErrOpcodeOp
		return
	}

	data := []byte(text)
	chunks := (len(data) + WORD_BYTES - 1) / WORD_BYTES
	stack := cpu.Stack()
	for n := chunks - 1; n >= 0; n-- {
		var word [WORD_BYTES]byte
		copy(word[:], data[n*WORD_BYTES:])
		err = stack.Push(binary.BigEndian.Uint64(word[:]))
		if err != nil {
			return
		}
	}

	return
}

// print writes length bytes of text starting at the memory index read
// through addr.
func (cpu *Cpu) print(addr Address, length Word) (err error) {
	start, err := cpu.read(addr)
	if err != nil {
		return
	}

	words := length / WORD_BYTES
	if length%WORD_BYTES != 0 {
		words++
	}
	size := Word(len(cpu.Memory))
	if start > size || words > size-start {
		err = ErrMemoryBounds
		return
	}

	data := make([]byte, 0, words*WORD_BYTES)
	for _, word := range cpu.Memory[start : start+words] {
		data = binary.BigEndian.AppendUint64(data, word)
	}
	data = data[:length]

	if !utf8.Valid(data) {
		err = ErrPrintInvalid
		return
	}

	out := cpu.Output
	if out == nil {
		out = os.Stdout
	}
	_, err = out.Write(data)

	return
}
