package cpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCpu(t *testing.T, lines []string, size uint) (cpu *Cpu) {
	asm := &Assembler{}
	prog, err := asm.ParseString(source(lines))
	require.NoError(t, err)

	cpu = NewCpu(prog, size)
	return
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil, 16)
	for reg := range Register(REGISTER_COUNT) {
		switch reg {
		case REG_SP, REG_BP:
			assert.Equal(Word(16), cpu.Register[reg], reg.String())
		default:
			assert.Equal(Word(0), cpu.Register[reg], reg.String())
		}
	}
	assert.Equal(FlagSet{}, cpu.Flag)
	assert.Equal(make([]Word, 16), cpu.Memory)
	assert.True(cpu.Done())

	assert.Equal(ErrIpEmpty, cpu.Tick())
	assert.NoError(cpu.Run())
}

func TestCpuScenarios(t *testing.T) {
	table := [](struct {
		name     string
		program  []string
		register Register
		value    Word
	}){
		{"multiples", programSumMultiples, REG_AX, 233168},
		{"fibonacci", programEvenFibonacci, REG_AX, 4613732},
		{"prime", programPrimeFactor, REG_CX, 6857},
		{"palindrome", programPalindrome, REG_DI, 906609},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			if testing.Short() && entry.name == "palindrome" {
				t.Skip("long running")
			}

			assert := assert.New(t)

			cpu := newTestCpu(t, entry.program, MEM_SIZE)
			assert.NoError(cpu.Run())
			assert.Equal(entry.value, cpu.Register[entry.register])
			assert.True(cpu.Done())
		})
	}
}

func TestCpuDivideFault(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov ax, 10",
		"mov bx, 0",
		"div bx",
		"mov cx, 1",
	}, MEM_SIZE)

	err := cpu.Run()
	assert.ErrorIs(err, ErrDivideByZero)
	assert.NotErrorIs(err, ErrStackEmpty)
	assert.NotErrorIs(err, ErrStackFull)

	var missing ErrLabelMissing
	assert.False(errors.As(err, &missing))

	var fault *ErrFault
	if assert.True(errors.As(err, &fault)) {
		assert.Equal(Word(2), fault.Ip)
		assert.Equal(OP_DIV, fault.Sequence.Op)
	}

	assert.Equal(Word(2), cpu.Register[REG_IP])
	assert.Equal(Word(10), cpu.Register[REG_AX])
	assert.Equal(Word(0), cpu.Register[REG_CX])
	assert.Equal(2, cpu.Ticks)
}

func TestCpuIndirect(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov bx, 100",
		"mov [bx], 0xdead",
		"mov ax, [100]",
		"inc [bx]",
		"mov cx, [bx]",
	}, MEM_SIZE)

	assert.NoError(cpu.Run())
	assert.Equal(Word(0xdead), cpu.Register[REG_AX])
	assert.Equal(Word(0xdeae), cpu.Register[REG_CX])
	assert.Equal(Word(0xdeae), cpu.Memory[100])
}

func TestCpuDeterminism(t *testing.T) {
	assert := assert.New(t)

	first := newTestCpu(t, programEvenFibonacci, 64)
	second := newTestCpu(t, programEvenFibonacci, 64)

	assert.NoError(first.Run())
	assert.NoError(second.Run())

	assert.Equal(first.Register, second.Register)
	assert.Equal(first.Flag, second.Flag)
	assert.Equal(first.Memory, second.Memory)
	assert.Equal(first.Ticks, second.Ticks)

	register := first.Register
	memory := append([]Word(nil), first.Memory...)

	first.Reset()
	assert.NoError(first.Run())
	assert.Equal(register, first.Register)
	assert.Equal(memory, first.Memory)
}

func TestFlags(t *testing.T) {
	assert := assert.New(t)

	var fl FlagSet

	assert.Equal(Word(0), fl.Add(math.MaxUint64, 1))
	assert.Equal(FlagSet{Carry: true, Zero: true}, fl)

	assert.Equal(Word(3), fl.Add(1, 2))
	assert.Equal(FlagSet{Overflow: true}, fl)

	assert.Equal(Word(math.MaxUint64), fl.Sub(1, 2))
	assert.Equal(FlagSet{Sign: true, Carry: true, Overflow: true}, fl)

	assert.Equal(Word(0), fl.Sub(5, 5))
	assert.Equal(FlagSet{Zero: true}, fl)

	assert.Equal(Word(0), fl.Mul(1<<63, 2))
	assert.Equal(FlagSet{Carry: true, Zero: true, Overflow: true}, fl)

	assert.Equal(Word(1<<63), fl.Mul(1<<62, 2))
	assert.Equal(FlagSet{Sign: true}, fl)

	fl = FlagSet{Carry: true, Overflow: true}
	quo, err := fl.Div(7, 2)
	assert.NoError(err)
	assert.Equal(Word(3), quo)
	assert.Equal(FlagSet{}, fl)

	rem, err := fl.Mod(9, 3)
	assert.NoError(err)
	assert.Equal(Word(0), rem)
	assert.Equal(FlagSet{Zero: true}, fl)

	_, err = fl.Div(7, 0)
	assert.ErrorIs(err, ErrDivideByZero)
	_, err = fl.Mod(7, 0)
	assert.ErrorIs(err, ErrDivideByZero)
	assert.Equal(FlagSet{Zero: true}, fl)
}

func TestFlagsCompare(t *testing.T) {
	table := [](struct {
		a, b  Word
		flags FlagSet
		taken []CodeOp
	}){
		{1, 2, FlagSet{Sign: true, Carry: true}, []CodeOp{OP_JMP, OP_JNE, OP_JL, OP_JLE}},
		{2, 2, FlagSet{Zero: true}, []CodeOp{OP_JMP, OP_JE, OP_JLE, OP_JGE}},
		{3, 2, FlagSet{}, []CodeOp{OP_JMP, OP_JNE, OP_JG, OP_JGE}},
		{math.MaxUint64, 0, FlagSet{}, []CodeOp{OP_JMP, OP_JNE, OP_JG, OP_JGE}},
	}

	for _, entry := range table {
		assert := assert.New(t)

		fl := FlagSet{Sign: true, Carry: true, Zero: true, Overflow: true}
		fl.Compare(entry.a, entry.b)
		assert.Equal(entry.flags, fl)

		var taken []CodeOp
		for op := OP_JMP; op <= OP_JGE; op++ {
			if fl.Taken(op) {
				taken = append(taken, op)
			}
		}
		assert.Equal(entry.taken, taken, "%d cmp %d", entry.a, entry.b)
	}
}

func TestCpuCall(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"call fn",
		"mov bx, 2",
		"jmp end",
		"fn:",
		"mov ax, 1",
		"ret",
		"end:",
	}, MEM_SIZE)

	assert.NoError(cpu.Run())
	assert.Equal(Word(1), cpu.Register[REG_AX])
	assert.Equal(Word(2), cpu.Register[REG_BX])
	assert.Equal(Word(MEM_SIZE), cpu.Register[REG_SP])
	// Return address is the call site.
	assert.Equal(Word(0), cpu.Memory[MEM_SIZE-1])
}

func TestCpuCallRecursive(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov cx, 5",
		"mov ax, 1",
		"call fact",
		"jmp done",
		"fact:",
		"cmp cx, 0",
		"je fact_end",
		"mul cx",
		"dec cx",
		"call fact",
		"fact_end:",
		"ret",
		"done:",
	}, MEM_SIZE)

	assert.NoError(cpu.Run())
	assert.Equal(Word(120), cpu.Register[REG_AX])
	assert.Equal(Word(MEM_SIZE), cpu.Register[REG_SP])
}

func TestCpuStackFaults(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{"ret"}, 16)
	err := cpu.Run()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.Equal(Word(0), cpu.Register[REG_IP])

	cpu = newTestCpu(t, []string{"pop ax"}, 16)
	assert.ErrorIs(cpu.Run(), ErrStackEmpty)

	cpu = newTestCpu(t, []string{
		"loop:",
		"push 1",
		"jmp loop",
	}, 2)
	err = cpu.Run()
	assert.ErrorIs(err, ErrStackFull)
	assert.NotErrorIs(err, ErrDivideByZero)
	assert.Equal(Word(0), cpu.Register[REG_SP])
	assert.Equal(Word(0), cpu.Register[REG_IP])
	assert.Equal(4, cpu.Ticks)
}

func TestCpuLabelMissing(t *testing.T) {
	for _, line := range []string{
		"call nowhere",
		"jmp nowhere",
		"mov ax, nowhere",
		"mov nowhere, 1",
	} {
		assert := assert.New(t)

		cpu := newTestCpu(t, []string{line}, 16)
		err := cpu.Run()
		assert.ErrorIs(err, ErrLabelMissing("nowhere"), line)
		assert.NotErrorIs(err, ErrDivideByZero, line)
		assert.Equal(Word(0), cpu.Register[REG_IP], line)
	}
}

func TestCpuLabelStorage(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"add counter, 10",
		"mov ax, counter",
		"counter:",
	}, 16)

	assert.NoError(cpu.Run())
	assert.Equal(Word(12), cpu.Register[REG_AX])

	index, ok := cpu.Program.LabelOf("counter")
	assert.True(ok)
	assert.Equal(Word(2), index)

	cpu.Reset()
	sym, _ := cpu.Program.Symbols.Lookup("counter")
	assert.Equal(Word(2), cpu.Label[sym])
}

func TestCpuLabelRebind(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov target, 2",
		"jmp target",
		"mov ax, 1",
		"target:",
		"mov bx, 1",
	}, 16)

	assert.NoError(cpu.Run())
	assert.Equal(Word(1), cpu.Register[REG_AX])
	assert.Equal(Word(1), cpu.Register[REG_BX])
}

func TestCpuRelativeJump(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov cx, 3",
		"dec cx",
		"jne -1",
		"jmp +2",
		"mov ax, 1",
		"mov bx, 2",
	}, 16)

	assert.NoError(cpu.Run())
	assert.Equal(Word(0), cpu.Register[REG_CX])
	assert.Equal(Word(0), cpu.Register[REG_AX])
	assert.Equal(Word(2), cpu.Register[REG_BX])
	assert.Equal(Word(6), cpu.Register[REG_IP])

	cpu = newTestCpu(t, []string{"jmp -5"}, 16)
	assert.NoError(cpu.Run())
	assert.Equal(Word(math.MaxUint64-4), cpu.Register[REG_IP])
}

func TestCpuWriteIp(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov ip, 2",
		"mov ax, 1",
		"mov bx, 1",
		"mov dx, 5",
		"jmp dx",
		"mov cx, 1",
	}, 16)

	assert.NoError(cpu.Run())
	assert.Equal(Word(0), cpu.Register[REG_AX])
	assert.Equal(Word(1), cpu.Register[REG_BX])
	assert.Equal(Word(1), cpu.Register[REG_CX])
	assert.Equal(5, cpu.Ticks)
}

func TestCpuPrint(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		`str "Hello, World!"`,
		"print sp, 13",
		`str "\n"`,
		"print sp, 1",
	}, MEM_SIZE)

	var out bytes.Buffer
	cpu.Output = &out

	assert.NoError(cpu.Run())
	assert.Equal("Hello, World!\n", out.String())

	sp := cpu.Register[REG_SP]
	assert.Equal(Word(MEM_SIZE-3), sp)
	assert.Equal(binary.BigEndian.Uint64([]byte("\n\x00\x00\x00\x00\x00\x00\x00")), cpu.Memory[sp])
	assert.Equal(binary.BigEndian.Uint64([]byte("Hello, W")), cpu.Memory[sp+1])
	assert.Equal(binary.BigEndian.Uint64([]byte("orld!\x00\x00\x00")), cpu.Memory[sp+2])
}

func TestCpuPrintFaults(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{
		"mov [0], 0xff00000000000000",
		"mov ax, 0",
		"print ax, 1",
	}, 16)
	cpu.Output = &bytes.Buffer{}
	assert.ErrorIs(cpu.Run(), ErrPrintInvalid)
	assert.Equal(Word(2), cpu.Register[REG_IP])

	cpu = newTestCpu(t, []string{"print sp, 8"}, 16)
	cpu.Output = &bytes.Buffer{}
	assert.ErrorIs(cpu.Run(), ErrMemoryBounds)

	cpu = newTestCpu(t, []string{"print sp, 0"}, 16)
	out := &bytes.Buffer{}
	cpu.Output = out
	assert.NoError(cpu.Run())
	assert.Equal(0, out.Len())
}

func TestCpuMemoryBounds(t *testing.T) {
	for _, line := range []string{
		"mov ax, [0xffff]",
		"mov [16], 1",
		"inc [16]",
	} {
		assert := assert.New(t)

		cpu := newTestCpu(t, []string{line}, 16)
		assert.ErrorIs(cpu.Run(), ErrMemoryBounds, line)
	}
}

func TestCpuExecute(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil, 16)
	assert.NoError(cpu.Execute(MakeMov(Reg(REG_AX), Imm(5))))
	assert.NoError(cpu.Execute(MakeAccumulate(OP_MUL, Imm(3))))
	assert.NoError(cpu.Execute(MakePush(Reg(REG_AX).Value())))
	assert.NoError(cpu.Execute(MakeStep(OP_DEC, Indirect(REG_SP))))
	assert.NoError(cpu.Execute(MakePop(Reg(REG_BX))))

	assert.Equal(Word(15), cpu.Register[REG_AX])
	assert.Equal(Word(14), cpu.Register[REG_BX])
	assert.Equal(Word(5), cpu.Register[REG_IP])
	assert.Equal(Word(16), cpu.Register[REG_SP])
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, []string{"mov ax, 0x1234", "cmp ax, 0x2000"}, 16)
	assert.NoError(cpu.Run())

	text := cpu.String()
	assert.Contains(text, "   ax: 0000_0000_0000_1234")
	assert.Contains(text, "   ip: 0000_0000_0000_0002")
	assert.Contains(text, "flags: sf cf -- --")
	assert.Equal(REGISTER_COUNT+2, strings.Count(text, "\n"))
}
