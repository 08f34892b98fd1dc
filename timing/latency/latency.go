// Package latency provides execute-stage timing for cycle-accurate
// simulation. Memory access timing lives in the cache hierarchy; this
// table covers only the functional-unit latency of each operation class.
package latency

import (
	"github.com/gfslab/gfsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a latency table with custom timing values.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execute-stage latency in cycles for the given
// instruction.
func (t *Table) GetLatency(inst *insts.Instruction) int {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpMULI, insts.OpMULU:
		return t.config.MultiplyLatency

	case insts.OpDIVI, insts.OpDIVU, insts.OpMODI, insts.OpMODU:
		return t.config.DivideLatency

	case insts.OpADDF, insts.OpSUBF:
		return t.config.FloatAddLatency

	case insts.OpMULF:
		return t.config.FloatMultiplyLatency

	case insts.OpDIVF:
		return t.config.FloatDivideLatency

	case insts.OpCMP8, insts.OpCMP16, insts.OpCMP32, insts.OpCMPF:
		return t.config.CompareLatency

	case insts.OpCALL, insts.OpRET,
		insts.OpJE, insts.OpJNE, insts.OpJGT, insts.OpJLT,
		insts.OpJGTE, insts.OpJLTE,
		insts.OpIJE, insts.OpIJNE, insts.OpIJGT, insts.OpIJLT,
		insts.OpIJGTE, insts.OpIJLTE:
		return t.config.BranchLatency

	default:
		return t.config.ALULatency
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
