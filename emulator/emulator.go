// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/hexvm/cpu"
	"github.com/ezrec/hexvm/internal"
)

const (
	TICK_CHECK = 1024 // Ticks between context cancellation checks.
)

// Emulator state. CPU + program listing + execution budget.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Strict   bool // If set, Assemble rejects undefined labels.
	MaxTicks int  // If non-zero, Run stops with ErrTickLimit after this many ticks.

	predefine map[string]string
}

// NewEmulator creates a new emulator with size words of memory.
func NewEmulator(size uint) (emu *Emulator) {
	emu = &Emulator{
		Program: cpu.NewProgram(),
	}

	emu.Cpu = cpu.NewCpu(emu.Program, size)

	return
}

// Predefine adds a constant visible to the expressions of Assemble.
func (emu *Emulator) Predefine(name string, value string) {
	if emu.predefine == nil {
		emu.predefine = map[string]string{}
	}
	emu.predefine[name] = value
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	local := map[string]string{
		"MEM_WORDS": fmt.Sprintf("%v", len(emu.Cpu.Memory)),
	}
	return internal.IterSeq2Concat(emu.Cpu.Defines(),
		maps.All(local),
		maps.All(emu.predefine),
	)
}

// Assemble parses source into a program, and loads it.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	asm := &cpu.Assembler{
		Verbose: emu.Verbose,
		Strict:  emu.Strict,
	}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Load(prog)

	return
}

// Load replaces the program, and resets the CPU.
func (emu *Emulator) Load(prog *cpu.Program) {
	emu.Program = prog
	emu.Cpu.Program = prog
	emu.Reset()
}

// Reset the CPU state
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() cpu.Word {
	return emu.Cpu.Register[cpu.REG_IP]
}

// LineNo returns the current line number for the executing instruction.
func (emu *Emulator) LineNo() int {
	return emu.Program.Debug(emu.Ip()).LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	dbg := emu.Program.Debug(emu.Ip())
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: dbg.LineNo, Label: dbg.Label, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrIpEmpty) {
		err = nil
		done = true
		return
	}

	return
}

// Run ticks the emulator until the program completes, faults, exceeds
// MaxTicks, or ctx is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for n := 0; ; n++ {
		if n%TICK_CHECK == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks && !emu.Cpu.Done() {
			err = &ErrRuntime{LineNo: emu.LineNo(), Err: ErrTickLimit}
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			break
		}
	}

	if emu.Verbose {
		log.Printf("emulator: %v ticks", emu.Cpu.Ticks)
	}

	return
}
