package cpu

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

var fuzzFaults = []error{
	ErrStackEmpty,
	ErrStackFull,
	ErrDivideByZero,
	ErrMemoryBounds,
	ErrPrintInvalid,
}

func FuzzCpu(f *testing.F) {
	f.Add(source(programSumMultiples))
	f.Add(source(programPrimeFactor))
	f.Add("mov ax, 10\ndiv 0\n")
	f.Add("str \"fuzz\"\nprint sp, 4\nret\n")
	f.Add("loop:\npush ip\ncall loop\n")
	f.Add("mov [ax], $(MEM_SIZE)\njmp -1\n")

	f.Fuzz(func(t *testing.T, text string) {
		assert := assert.New(t)

		asm := &Assembler{}
		prog, err := asm.ParseString(text)
		if err != nil {
			var syntax *ErrSyntax
			assert.True(errors.As(err, &syntax), "%v", err)
			assert.Nil(prog)
			return
		}

		cpu := NewCpu(prog, 64)
		cpu.Output = io.Discard

		for range 1000 {
			ip := cpu.Register[REG_IP]
			err = cpu.Tick()
			if errors.Is(err, ErrIpEmpty) {
				assert.True(cpu.Done())
				return
			}
			if err == nil {
				continue
			}

			var fault *ErrFault
			if assert.True(errors.As(err, &fault), "%v", err) {
				assert.Equal(ip, fault.Ip)
			}
			assert.Equal(ip, cpu.Register[REG_IP], "fault must not advance ip")

			var missing ErrLabelMissing
			known := errors.As(err, &missing)
			for _, fault := range fuzzFaults {
				known = known || errors.Is(err, fault)
			}
			assert.True(known, "%v", err)
			return
		}
	})
}
