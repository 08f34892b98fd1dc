package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gfslab/gfsim/asm"
)

var (
	asmOutput string
	asmBase   uint32
)

var asmCmd = &cobra.Command{
	Use:   "asm <program.s>",
	Short: "Assemble GF32 source into a program image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		prog, err := asm.Assemble(string(src), asmBase)
		if err != nil {
			return err
		}

		out := asmOutput
		if out == "" {
			out = strings.TrimSuffix(args[0], ".s") + ".bin"
		}
		if err := os.WriteFile(out, prog.Bytes(), 0644); err != nil {
			return err
		}

		fmt.Printf("%s: %d instructions, %d labels -> %s\n",
			args[0], len(prog.Words), len(prog.Labels), out)
		return nil
	},
}

func init() {
	asmCmd.Flags().StringVarP(&asmOutput, "output", "o", "", "output file")
	asmCmd.Flags().Uint32Var(&asmBase, "base", 0, "program load address")
	RootCmd.AddCommand(asmCmd)
}
