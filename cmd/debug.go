package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/loader"
	"github.com/gfslab/gfsim/timing/core"
	"github.com/gfslab/gfsim/timing/pipeline"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed)
	eventColor  = color.New(color.FgYellow)
	valueColor  = color.New(color.FgGreen)
)

var debugEntry uint32

var debugCmd = &cobra.Command{
	Use:   "debug <program.bin>",
	Short: "Debug a GF32 program interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, err := loader.LoadFile(args[0], debugEntry)
		if err != nil {
			return err
		}
		c, err := buildCore(prog)
		if err != nil {
			return err
		}
		repl(c)
		return nil
	},
}

func init() {
	debugCmd.Flags().Uint32Var(&debugEntry, "entry", 0, "program load/entry address")
	RootCmd.AddCommand(debugCmd)
}

func repl(c *core.Core) {
	fmt.Println("gfsim debugger. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Printf("(gfsim) pc=0x%08x> ", c.PC())
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help", "h":
			printHelp()
		case "step", "s":
			n := 1
			if len(fields) > 1 {
				n, _ = strconv.Atoi(fields[1])
			}
			for i := 0; i < n; i++ {
				res := c.Step()
				if report(c, res) {
					break
				}
			}
		case "run", "r", "continue", "c":
			reason, err := c.Run()
			switch reason {
			case core.StopFaulted:
				errorColor.Printf("fault: %v\n", err)
			case core.StopBreakpoint:
				eventColor.Printf("breakpoint at 0x%08x\n", c.PC())
			default:
				eventColor.Printf("%s\n", reason)
			}
		case "break", "b":
			if addr, ok := parseAddr(fields, 1); ok {
				c.AddBreakpoint(addr)
				fmt.Printf("breakpoint set at 0x%08x\n", addr)
			}
		case "del", "d":
			if addr, ok := parseAddr(fields, 1); ok {
				c.RemoveBreakpoint(addr)
			}
		case "regs":
			for i := uint8(0); i < emu.NumRegs; i++ {
				valueColor.Printf("R%-2d = 0x%08x  ", i, c.ReadRegister(i))
				if i%4 == 3 {
					fmt.Println()
				}
			}
		case "fregs":
			for i := uint8(0); i < emu.NumFloatRegs; i++ {
				valueColor.Printf("F%-2d = %g  ", i, c.ReadFloatRegister(i))
				if i%4 == 3 {
					fmt.Println()
				}
			}
		case "flags":
			fmt.Printf("%v\n", c.Flags())
		case "mem", "m", "x":
			addr, ok := parseAddr(fields, 1)
			if !ok {
				break
			}
			width := uint32(4)
			if len(fields) > 2 {
				if w, err := strconv.Atoi(fields[2]); err == nil {
					width = uint32(w)
				}
			}
			v, err := c.ReadMemory(addr, width)
			if err != nil {
				errorColor.Printf("%v\n", err)
			} else {
				valueColor.Printf("[0x%08x] = 0x%0*x\n", addr, int(width*2), v)
			}
		case "stats":
			st := c.Stats()
			fmt.Printf("cycles=%d instructions=%d cpi=%.2f load-use=%d squashed=%d\n",
				st.Cycles, st.Instructions, st.CPI(),
				st.LoadUseStalls, st.SquashedInstructions)
		case "reset":
			if err := c.Reset(); err != nil {
				errorColor.Printf("%v\n", err)
			} else {
				eventColor.Println("machine reset")
			}
		case "quit", "q", "exit":
			return
		default:
			errorColor.Printf("unknown command %q\n", fields[0])
		}
	}
}

// report prints terminal-state transitions. Returns true when stepping
// should stop.
func report(c *core.Core, res core.StepResult) bool {
	switch res.State {
	case pipeline.StateHalted:
		eventColor.Println("machine halted")
		return true
	case pipeline.StateFaulted:
		errorColor.Printf("fault: %v\n", c.Fault())
		return true
	}
	if res.Breakpoint {
		eventColor.Printf("breakpoint at 0x%08x\n", c.PC())
		return true
	}
	return false
}

func parseAddr(fields []string, idx int) (uint32, bool) {
	if len(fields) <= idx {
		errorColor.Println("missing address")
		return 0, false
	}
	v, err := strconv.ParseUint(fields[idx], 0, 32)
	if err != nil {
		errorColor.Printf("bad address %q\n", fields[idx])
		return 0, false
	}
	return uint32(v), true
}

func printHelp() {
	fmt.Print(`commands:
  step [n]        advance n cycles (default 1)
  run             run until halt, fault, or breakpoint
  break <addr>    set a breakpoint (fetch address)
  del <addr>      remove a breakpoint
  regs / fregs    dump integer / float registers
  flags           show the flag register
  mem <addr> [w]  read memory (width 1, 2, or 4)
  stats           show pipeline counters
  reset           reset the machine and reload the program
  quit            leave the debugger
`)
}
