// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezrec/hexvm/cpu"
	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

var ErrDefineSyntax = errors.New(f("define must be NAME=VALUE"))

// options shared by all commands.
type options struct {
	verbose bool
	memory  uint
	strict  bool
	defines []string
}

// predefine hands the --define options to fn.
func (opts *options) predefine(fn func(name, value string)) (err error) {
	for _, def := range opts.defines {
		name, value, ok := strings.Cut(def, "=")
		if !ok || len(name) == 0 {
			err = errors.Join(ErrDefineSyntax, errors.New(def))
			return
		}
		fn(name, value)
	}
	return
}

// assembler returns an assembler configured from the options.
func (opts *options) assembler() (asm *cpu.Assembler, err error) {
	asm = &cpu.Assembler{
		Verbose: opts.verbose,
		Strict:  opts.strict,
	}
	err = opts.predefine(asm.Predefine)
	return
}

func newRootCmd() (root *cobra.Command) {
	opts := &options{}

	root = &cobra.Command{
		Use:   "hexvm",
		Short: "Assembler and emulator for the hexvm register machine",
		Long: `Hexvm assembles line oriented assembly source for a small register
machine with nine 64-bit registers and a flat word addressed memory, and
runs it to completion.

Programs communicate results through print, and through the final machine
state which --dump writes after the run.
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.Printf("hexvm: language %v", translate.Language)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose mode")
	flags.UintVar(&opts.memory, "memory", cpu.MEM_SIZE, "Memory capacity, in words")
	flags.BoolVar(&opts.strict, "strict", false, "Reject undefined labels at assembly time")
	flags.StringArrayVarP(&opts.defines, "define", "D", nil, "Define NAME=VALUE for $(...) expressions")

	root.AddCommand(
		newRunCmd(opts),
		newLexCmd(),
		newListCmd(opts),
	)

	return
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		log.Fatal(err)
	}
}
