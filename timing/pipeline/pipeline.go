package pipeline

import (
	"log/slog"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/insts"
	"github.com/gfslab/gfsim/timing/cache"
	"github.com/gfslab/gfsim/timing/latency"
)

// State is the machine execution state.
type State int

// Machine states. Halted (a committed HALT) and Faulted (a fatal fault)
// are both terminal but distinct.
const (
	StateRunning State = iota
	StateHalted
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

// Statistics holds pipeline performance counters.
type Statistics struct {
	Cycles               uint64
	Instructions         uint64
	LoadUseStalls        uint64
	MemStallCycles       uint64
	ExStallCycles        uint64
	TakenBranches        uint64
	SquashedInstructions uint64
}

// CPI returns cycles per committed instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Pipeline is the 5-stage in-order GF32 pipeline.
//
// Each Tick models one clock cycle with two-phase update semantics: every
// stage observes the latch values from the end of the previous cycle, and
// all latches move together at the end of the tick. Data memory goes
// through the cache hierarchy; instruction fetch reads main memory
// directly in a single cycle.
type Pipeline struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
	alu     *emu.ALU
	stack   *emu.CallStack
	hier    *cache.Hierarchy
	mem     *emu.Memory
	hazards *HazardUnit
	table   *latency.Table
	logger  *slog.Logger

	pc    uint32
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	state State
	fault error

	// fetchHalted stops fetch once a HALT enters Decode, so the words
	// behind a program's last instruction are never executed. A squashed
	// HALT clears it.
	fetchHalted bool

	// Execute-stage occupancy for multi-cycle operations.
	exPending   bool
	exRemaining int

	// Memory-stage occupancy while a hierarchy access completes.
	memPending   bool
	memRemaining int
	memValue     uint32

	stats Statistics
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets the execute-stage latency table.
func WithLatencyTable(t *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.table = t
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline creates a pipeline over the given memory hierarchy. The call
// stack occupies [stackBase, stackBase+stackSize) of main memory.
func NewPipeline(hier *cache.Hierarchy, stackBase, stackSize uint32, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile: emu.NewRegFile(),
		decoder: insts.NewDecoder(),
		alu:     emu.NewALU(),
		stack:   emu.NewCallStack(hier.Main(), stackBase, stackSize),
		hier:    hier,
		mem:     hier.Main(),
		hazards: NewHazardUnit(),
		table:   latency.NewTable(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.clearLatches()
	return p
}

// RegFile returns the architectural register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Hierarchy returns the memory hierarchy.
func (p *Pipeline) Hierarchy() *cache.Hierarchy {
	return p.hier
}

// State returns the machine state.
func (p *Pipeline) State() State {
	return p.state
}

// Fault returns the fatal fault that moved the machine to StateFaulted.
func (p *Pipeline) Fault() error {
	return p.fault
}

// PC returns the fetch program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC redirects fetch. Only meaningful before the first cycle or after
// Reset.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Reset returns the pipeline to its construction state: latches cleared,
// registers zeroed, call stack emptied, caches invalidated, counters
// zeroed, PC at 0. Main memory contents are left to the caller.
func (p *Pipeline) Reset() {
	p.clearLatches()
	p.regFile.Reset()
	p.stack.Reset()
	p.hier.Reset()
	p.pc = 0
	p.state = StateRunning
	p.fault = nil
	p.fetchHalted = false
	p.exPending = false
	p.exRemaining = 0
	p.memPending = false
	p.memRemaining = 0
	p.memValue = 0
	p.stats = Statistics{}
}

func (p *Pipeline) clearLatches() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
}

// Tick advances the machine by one clock cycle. Stages are evaluated
// against the previous cycle's latch values; latch updates commit
// together at the end.
func (p *Pipeline) Tick() {
	if p.state != StateRunning {
		return
	}
	p.stats.Cycles++

	// Writeback commits the oldest instruction first, so Execute sees the
	// pre-commit latch state through the forwarding unit.
	if p.memwb.Valid {
		if halted := p.writebackStage(); halted {
			p.state = StateHalted
			p.logger.Debug("machine halted", "pc", p.memwb.PC, "cycles", p.stats.Cycles)
			return
		}
	}

	// Memory.
	var memwbNext MEMWBRegister
	memwbNext.Clear()
	if p.exmem.Valid {
		stall, next, err := p.memoryStage()
		if err != nil {
			p.faultWith(err)
			return
		}
		if stall {
			// The access is still completing. Everything upstream holds;
			// a bubble drains into Writeback.
			p.memwb = memwbNext
			p.stats.MemStallCycles++
			return
		}
		memwbNext = next
	}

	// Execute.
	var exmemNext EXMEMRegister
	exmemNext.Clear()
	if p.idex.Valid {
		if p.idex.DecodeFault != nil {
			p.faultWith(p.idex.DecodeFault)
			return
		}
		if !p.exPending {
			p.exPending = true
			p.exRemaining = p.table.GetLatency(p.idex.Inst)
		}
		p.exRemaining--
		if p.exRemaining > 0 {
			// Multi-cycle operation occupies Execute; upstream holds.
			p.memwb = memwbNext
			p.exmem = exmemNext
			p.stats.ExStallCycles++
			return
		}
		p.exPending = false

		next, taken, target, err := p.executeStage()
		if err != nil {
			p.faultWith(err)
			return
		}
		exmemNext = next

		if taken {
			p.redirect(target)
			p.memwb = memwbNext
			p.exmem = exmemNext
			return
		}
	}

	// Decode, with the load-use interlock.
	var idexNext IDEXRegister
	idexNext.Clear()
	stallFetch := false
	if p.ifid.Valid {
		idexNext = p.decodeStage()
		if p.hazards.LoadUseHazard(&p.idex, idexNext.SrcA, idexNext.SrcB) {
			// Hold the consumer in IF/ID for one cycle; a bubble enters
			// Execute. MEM/WB forwarding covers it afterwards.
			idexNext.Clear()
			stallFetch = true
			p.stats.LoadUseStalls++
		}
	}

	// Fetch.
	var ifidNext IFIDRegister
	switch {
	case stallFetch:
		ifidNext = p.ifid
	case p.fetchHalted:
		// Drain: nothing past a HALT is fetched.
	default:
		word, err := p.mem.FetchWord(p.pc)
		if err != nil {
			// Carry the fault down the pipeline; it only fires if this
			// slot reaches Execute without being squashed.
			ifidNext = IFIDRegister{Valid: true, PC: p.pc, FetchFault: err}
			p.fetchHalted = true
		} else {
			ifidNext = IFIDRegister{Valid: true, PC: p.pc, Word: word}
			p.pc += insts.WordBytes
		}
	}

	p.memwb = memwbNext
	p.exmem = exmemNext
	p.idex = idexNext
	p.ifid = ifidNext
}

// redirect squashes the two instructions younger than a taken branch and
// restarts fetch at the target.
func (p *Pipeline) redirect(target uint32) {
	p.stats.TakenBranches++
	if p.ifid.Valid {
		p.stats.SquashedInstructions++
	}
	if !p.fetchHalted {
		p.stats.SquashedInstructions++
	}
	p.ifid.Clear()
	p.idex.Clear()
	p.fetchHalted = false
	p.pc = target
}

func (p *Pipeline) faultWith(err error) {
	p.state = StateFaulted
	p.fault = err
	p.logger.Debug("machine faulted", "err", err, "cycles", p.stats.Cycles)
}

// writebackStage commits the MEM/WB latch to the register file. Returns
// true when the committed instruction is HALT.
func (p *Pipeline) writebackStage() bool {
	p.stats.Instructions++
	if p.memwb.DestReg >= 0 {
		p.regFile.WriteReg(uint8(p.memwb.DestReg), p.memwb.Result)
	}
	if p.memwb.FDestReg >= 0 {
		p.regFile.WriteFloat(uint8(p.memwb.FDestReg), p.memwb.FloatResult)
	}
	if p.memwb.SetFlags {
		p.regFile.Flags = p.memwb.Flags
	}
	return p.memwb.Inst != nil && p.memwb.Inst.Op == insts.OpHALT
}

// memoryStage runs loads and stores against the hierarchy. The first cycle
// issues the access and learns its total latency; the instruction then
// occupies the stage until the latency is paid.
func (p *Pipeline) memoryStage() (stall bool, next MEMWBRegister, err error) {
	next.Clear()
	inst := p.exmem.Inst

	if inst != nil && (inst.IsLoad() || inst.IsStore()) {
		if !p.memPending {
			if inst.IsLoad() {
				res, rerr := p.hier.Read(p.exmem.ALUResult, inst.MemWidth())
				if rerr != nil {
					return false, next, rerr
				}
				value := res.Value
				if inst.IsSignedLoad() {
					value = emu.SignExtend(value, inst.MemWidth())
				}
				p.memValue = value
				p.memRemaining = res.Latency
			} else {
				lat, werr := p.hier.Write(p.exmem.ALUResult, inst.MemWidth(), p.exmem.StoreValue)
				if werr != nil {
					return false, next, werr
				}
				p.memRemaining = lat
			}
			p.memPending = true
		}

		p.memRemaining--
		if p.memRemaining > 0 {
			return true, next, nil
		}
		p.memPending = false
	}

	next.Valid = true
	next.PC = p.exmem.PC
	next.Inst = inst
	next.Result = p.exmem.ALUResult
	if inst != nil && inst.IsLoad() {
		next.Result = p.memValue
	}
	next.FloatResult = p.exmem.FloatResult
	next.Flags = p.exmem.Flags
	next.SetFlags = p.exmem.SetFlags
	next.DestReg = p.exmem.DestReg
	next.FDestReg = p.exmem.FDestReg
	return false, next, nil
}

// executeStage resolves operands through the forwarding unit and runs the
// ALU, branch, and call-stack work of the instruction in ID/EX.
func (p *Pipeline) executeStage() (next EXMEMRegister, taken bool, target uint32, err error) {
	next.Clear()
	inst := p.idex.Inst
	next.Valid = true
	next.PC = p.idex.PC
	next.Inst = inst

	readGPR := func(reg int) uint32 {
		if v, ok := p.hazards.ForwardGPR(reg, &p.exmem, &p.memwb); ok {
			return v
		}
		return p.regFile.ReadReg(uint8(reg))
	}
	readFPR := func(reg int) float32 {
		if v, ok := p.hazards.ForwardFPR(reg, &p.exmem, &p.memwb); ok {
			return v
		}
		return p.regFile.ReadFloat(uint8(reg))
	}

	switch {
	case inst.Op == insts.OpHALT:
		// Travels to Writeback, where it halts the machine.

	case inst.Op == insts.OpCALL:
		if perr := p.stack.Push(p.idex.PC + insts.WordBytes); perr != nil {
			return next, false, 0, perr
		}
		return next, true, inst.Imm, nil

	case inst.Op == insts.OpRET:
		ret, perr := p.stack.Pop(p.idex.PC)
		if perr != nil {
			return next, false, 0, perr
		}
		return next, true, ret, nil

	case inst.IsBranch():
		flags := p.hazards.ForwardFlags(&p.exmem, &p.memwb, p.regFile.Flags)
		if p.alu.BranchTaken(inst.Op, flags) {
			target = inst.Imm
			if inst.IsIndirectBranch() {
				t, rerr := p.mem.Read(inst.Imm, 4)
				if rerr != nil {
					return next, false, 0, rerr
				}
				target = t
			}
			return next, true, target, nil
		}

	case inst.Op == insts.OpCMPF:
		next.Flags = p.alu.CompareFloat(readFPR(p.idex.FSrcA), readFPR(p.idex.FSrcB))
		next.SetFlags = true

	case inst.IsCompare():
		next.Flags = p.alu.Compare(
			readGPR(p.idex.SrcA), readGPR(p.idex.SrcB), inst.MemWidth())
		next.SetFlags = true

	case inst.IsLoad():
		addr := inst.Imm
		if inst.IsIndirect() {
			addr = readGPR(p.idex.SrcB)
		}
		next.ALUResult = addr
		next.DestReg = int(inst.R1)

	case inst.IsStore():
		addr := inst.Imm
		if inst.IsIndirect() {
			addr = readGPR(p.idex.SrcB)
		}
		next.ALUResult = addr
		next.StoreValue = readGPR(p.idex.SrcA)

	case inst.Op == insts.OpADDIM:
		next.ALUResult = p.alu.AddImm(readGPR(p.idex.SrcA), inst.SignedImm())
		next.DestReg = int(inst.R1)

	case inst.Format == insts.Format5:
		next.ALUResult = p.alu.IntOp(inst.Op, readGPR(p.idex.SrcA), readGPR(p.idex.SrcB))
		next.DestReg = int(inst.R1)

	case inst.Format == insts.Format6:
		next.FloatResult = p.alu.FloatOp(inst.Op, readFPR(p.idex.FSrcA), readFPR(p.idex.FSrcB))
		next.FDestReg = int(inst.F1)
	}

	return next, false, 0, nil
}

// decodeStage decodes the IF/ID latch and records the source registers the
// instruction will need in Execute.
func (p *Pipeline) decodeStage() IDEXRegister {
	var out IDEXRegister
	out.Clear()
	out.Valid = true
	out.PC = p.ifid.PC

	if p.ifid.FetchFault != nil {
		out.DecodeFault = p.ifid.FetchFault
		return out
	}

	inst, err := p.decoder.Decode(p.ifid.Word)
	if err != nil {
		out.DecodeFault = err
		return out
	}
	out.Inst = inst

	if inst.Op == insts.OpHALT {
		p.fetchHalted = true
	}

	// Source mapping mirrors the operand resolution in executeStage.
	switch {
	case inst.Op == insts.OpCMPF:
		out.FSrcA, out.FSrcB = int(inst.F1), int(inst.F2)
	case inst.IsCompare():
		out.SrcA, out.SrcB = int(inst.R1), int(inst.R2)
	case inst.IsStore():
		out.SrcA = int(inst.R1)
		if inst.IsIndirect() {
			out.SrcB = int(inst.R2)
		}
	case inst.IsLoad():
		if inst.IsIndirect() {
			out.SrcB = int(inst.R2)
		}
	case inst.Op == insts.OpADDIM:
		out.SrcA = int(inst.R1)
	case inst.Format == insts.Format5:
		out.SrcA, out.SrcB = int(inst.R2), int(inst.R3)
	case inst.Format == insts.Format6:
		out.FSrcA, out.FSrcB = int(inst.F2), int(inst.F3)
	}

	return out
}

// Drained reports whether no instruction is in flight.
func (p *Pipeline) Drained() bool {
	return !p.ifid.Valid && !p.idex.Valid && !p.exmem.Valid && !p.memwb.Valid
}
