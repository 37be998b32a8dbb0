package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezrec/hexvm/lex"
)

func newLexCmd() (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "lex sourceFile",
		Short: "Print the lexemes of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return
			}

			lexer := lex.NewRecordedLexer(string(data))
			for lexer.Advance().Kind != lex.EOF {
			}

			out := cmd.OutOrStdout()
			for _, lx := range lexer.Store() {
				_, err = fmt.Fprintf(out, "%v %q\n", lx, lx.Text(lexer.Source()))
				if err != nil {
					return
				}
			}
			return
		},
	}

	return
}

func newListCmd(opts *options) (cmd *cobra.Command) {
	cmd = &cobra.Command{
		Use:   "list sourceFile",
		Short: "Assemble a source file and print its listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			inf, err := os.Open(args[0])
			if err != nil {
				return
			}
			defer inf.Close()

			asm, err := opts.assembler()
			if err != nil {
				return
			}

			prog, err := asm.Parse(inf)
			if err != nil {
				err = fmt.Errorf("%v: %w", args[0], err)
				return
			}

			err = prog.Listing(cmd.OutOrStdout())
			return
		},
	}

	return
}
