// Package core provides the execution controller: program loading,
// stepping, free-running with breakpoints, inspection, and reset.
package core

import (
	"log/slog"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/insts"
	"github.com/gfslab/gfsim/timing/cache"
	"github.com/gfslab/gfsim/timing/pipeline"
)

// StopReason tells why Run returned.
type StopReason int

// Stop reasons.
const (
	StopHalted StopReason = iota
	StopFaulted
	StopBreakpoint
	StopCycleLimit
)

func (r StopReason) String() string {
	switch r {
	case StopHalted:
		return "halted"
	case StopFaulted:
		return "faulted"
	case StopBreakpoint:
		return "breakpoint"
	case StopCycleLimit:
		return "cycle limit"
	}
	return "unknown"
}

// StepResult is what a single controller step observed.
type StepResult struct {
	State pipeline.State
	// Breakpoint is true when the next instruction to fetch sits on a
	// breakpoint address.
	Breakpoint bool
}

// Core drives the pipeline. It owns the loaded program image so Reset can
// restore main memory, and the breakpoint set used by Run.
type Core struct {
	pipe *pipeline.Pipeline
	hier *cache.Hierarchy

	program     []uint32
	programBase uint32
	entry       uint32

	breakpoints map[uint32]struct{}
	logger      *slog.Logger
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) CoreOption {
	return func(c *Core) {
		c.logger = l
	}
}

// NewCore creates a controller over a pipeline.
func NewCore(pipe *pipeline.Pipeline, opts ...CoreOption) *Core {
	c := &Core{
		pipe:        pipe,
		hier:        pipe.Hierarchy(),
		breakpoints: make(map[uint32]struct{}),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadProgram writes the instruction words into main memory starting at
// base and points fetch at them. The image is retained for Reset.
func (c *Core) LoadProgram(words []uint32, base uint32) error {
	mem := c.hier.Main()
	for i, w := range words {
		if err := mem.StoreWord(base+uint32(i)*insts.WordBytes, w); err != nil {
			return err
		}
	}
	c.program = append([]uint32(nil), words...)
	c.programBase = base
	c.entry = base
	c.pipe.SetPC(base)
	c.logger.Debug("program loaded", "words", len(words), "base", base)
	return nil
}

// Step advances the machine one cycle.
func (c *Core) Step() StepResult {
	c.pipe.Tick()
	_, brk := c.breakpoints[c.pipe.PC()]
	return StepResult{
		State:      c.pipe.State(),
		Breakpoint: brk && c.pipe.State() == pipeline.StateRunning,
	}
}

// Run cycles the machine until it halts, faults, or fetch reaches a
// breakpoint. On a fault the fault error is returned alongside the reason.
func (c *Core) Run() (StopReason, error) {
	return c.run(0)
}

// RunCycles is Run with an upper bound on cycles.
func (c *Core) RunCycles(limit uint64) (StopReason, error) {
	return c.run(limit)
}

func (c *Core) run(limit uint64) (StopReason, error) {
	for n := uint64(0); limit == 0 || n < limit; n++ {
		res := c.Step()
		switch res.State {
		case pipeline.StateHalted:
			return StopHalted, nil
		case pipeline.StateFaulted:
			return StopFaulted, c.pipe.Fault()
		}
		if res.Breakpoint {
			return StopBreakpoint, nil
		}
	}
	return StopCycleLimit, nil
}

// AddBreakpoint arms a breakpoint at an instruction address.
func (c *Core) AddBreakpoint(addr uint32) {
	c.breakpoints[addr] = struct{}{}
}

// RemoveBreakpoint disarms a breakpoint.
func (c *Core) RemoveBreakpoint(addr uint32) {
	delete(c.breakpoints, addr)
}

// Breakpoints returns the armed breakpoint addresses.
func (c *Core) Breakpoints() []uint32 {
	out := make([]uint32, 0, len(c.breakpoints))
	for addr := range c.breakpoints {
		out = append(out, addr)
	}
	return out
}

// ReadRegister returns a general-purpose register, untimed.
func (c *Core) ReadRegister(id uint8) uint32 {
	return c.pipe.RegFile().ReadReg(id)
}

// ReadFloatRegister returns a float register, untimed.
func (c *Core) ReadFloatRegister(id uint8) float32 {
	return c.pipe.RegFile().ReadFloat(id)
}

// Flags returns the committed flag register.
func (c *Core) Flags() emu.Flags {
	return c.pipe.RegFile().Flags
}

// ReadMemory reads main memory without touching the caches or the clock.
// Write-through keeps main memory coherent, so this observes the same
// values a timed read would.
func (c *Core) ReadMemory(addr, width uint32) (uint32, error) {
	return c.hier.Main().Read(addr, width)
}

// PC returns the fetch program counter.
func (c *Core) PC() uint32 {
	return c.pipe.PC()
}

// State returns the machine state.
func (c *Core) State() pipeline.State {
	return c.pipe.State()
}

// Fault returns the fault that stopped the machine, if any.
func (c *Core) Fault() error {
	return c.pipe.Fault()
}

// Stats returns the pipeline counters.
func (c *Core) Stats() pipeline.Statistics {
	return c.pipe.Stats()
}

// CacheStats returns the memory hierarchy counters.
func (c *Core) CacheStats() cache.Statistics {
	return c.hier.Stats()
}

// Pipeline exposes the underlying pipeline.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipe
}

// Reset restores the machine to its initial state: registers and latches
// cleared, caches invalidated, main memory zeroed and reloaded from the
// program image, fetch back at the entry point. Breakpoints survive.
func (c *Core) Reset() error {
	c.pipe.Reset()
	c.hier.Main().Reset()
	if c.program != nil {
		if err := c.LoadProgram(c.program, c.programBase); err != nil {
			return err
		}
	}
	c.pipe.SetPC(c.entry)
	return nil
}
