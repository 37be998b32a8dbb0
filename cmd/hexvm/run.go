package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/hexvm/emulator"
)

type runOptions struct {
	*options
	maxTicks int
	timeout  time.Duration
	dump     bool
}

func newRunCmd(opts *options) (cmd *cobra.Command) {
	ropts := &runOptions{options: opts}

	cmd = &cobra.Command{
		Use:   "run sourceFile...",
		Short: "Assemble and run programs",
		Long: `Run assembles each source file and executes it to completion.

Several files are run concurrently, each on its own machine. The print
output of every program is written in the order the files were given.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ropts.runAll(cmd.Context(), cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&ropts.maxTicks, "max-ticks", 0, "Stop each program after this many instructions (0 is unlimited)")
	flags.DurationVar(&ropts.timeout, "timeout", 0, "Stop each program after this long (0 is unlimited)")
	flags.BoolVar(&ropts.dump, "dump", false, "Write the final machine state after each program")

	return
}

// runAll runs every file, then writes their output in argument order.
func (ropts *runOptions) runAll(ctx context.Context, cmd *cobra.Command, files []string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	outputs := make([]bytes.Buffer, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	for n, file := range files {
		eg.Go(func() error {
			return ropts.runFile(ctx, file, &outputs[n])
		})
	}
	err = eg.Wait()

	for n := range outputs {
		_, werr := cmd.OutOrStdout().Write(outputs[n].Bytes())
		if err == nil {
			err = werr
		}
	}

	return
}

// runFile assembles and runs a single file, writing its output to out.
func (ropts *runOptions) runFile(ctx context.Context, file string, out *bytes.Buffer) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%v: %w", file, err)
		}
	}()

	inf, err := os.Open(file)
	if err != nil {
		return
	}
	defer inf.Close()

	emu := emulator.NewEmulator(ropts.memory)
	emu.Verbose = ropts.verbose
	emu.Strict = ropts.strict
	emu.MaxTicks = ropts.maxTicks

	err = ropts.predefine(emu.Predefine)
	if err != nil {
		return
	}

	err = emu.Assemble(inf)
	if err != nil {
		return
	}

	emu.Cpu.Output = out

	if ropts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ropts.timeout)
		defer cancel()
	}

	err = emu.Run(ctx)

	if ropts.dump {
		out.WriteString(emu.Cpu.String())
	}

	return
}
