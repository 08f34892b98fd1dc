package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/loader"
	"github.com/gfslab/gfsim/timing/core"
)

var (
	runEntry     uint32
	runMaxCycles uint64
	runShowRegs  bool
)

var runCmd = &cobra.Command{
	Use:   "run <program.bin>",
	Short: "Run a GF32 program image to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, err := loader.LoadFile(args[0], runEntry)
		if err != nil {
			return err
		}

		c, err := buildCore(prog)
		if err != nil {
			return err
		}

		reason, err := c.RunCycles(runMaxCycles)
		if reason == core.StopFaulted {
			fmt.Printf("machine faulted: %v\n", err)
		} else {
			fmt.Printf("machine stopped: %s\n", reason)
		}

		stats := c.Stats()
		fmt.Printf("cycles: %d  instructions: %d  cpi: %.2f\n",
			stats.Cycles, stats.Instructions, stats.CPI())

		cs := c.CacheStats()
		for i, l := range cs.Levels {
			fmt.Printf("L%d: %d hits, %d misses, %d evictions\n",
				i+1, l.Hits, l.Misses, l.Evictions)
		}

		if runShowRegs {
			for i := uint8(0); i < emu.NumRegs; i++ {
				fmt.Printf("R%-2d = 0x%08x\n", i, c.ReadRegister(i))
			}
			fmt.Printf("flags: %v\n", c.Flags())
		}

		if reason == core.StopFaulted {
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Uint32Var(&runEntry, "entry", 0, "program load/entry address")
	runCmd.Flags().Uint64Var(&runMaxCycles, "max-cycles", 0, "cycle limit (0 = none)")
	runCmd.Flags().BoolVar(&runShowRegs, "regs", false, "dump registers at the end")
	RootCmd.AddCommand(runCmd)
}
