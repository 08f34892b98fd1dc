package emu

import (
	"math"

	"github.com/gfslab/gfsim/insts"
)

// Emulator executes GF32 programs functionally, one instruction at a time,
// directly against main memory and with no timing model. It serves as the
// architectural reference for the pipelined engine: the same program run
// through both must leave identical register and memory state.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	alu     *ALU
	stack   *CallStack

	halted           bool
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions caps the number of instructions Run will execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator over the given memory. The call stack
// occupies [stackBase, stackBase+stackSize).
func NewEmulator(memory *Memory, stackBase, stackSize uint32, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: NewRegFile(),
		memory:  memory,
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
		stack:   NewCallStack(memory, stackBase, stackSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Halted reports whether a HALT has executed.
func (e *Emulator) Halted() bool {
	return e.halted
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step fetches, decodes, and executes one instruction. Any fault is
// returned as-is and leaves the emulator state at the faulting
// instruction.
func (e *Emulator) Step() error {
	if e.halted {
		return nil
	}

	pc := e.regFile.PC
	word, err := e.memory.FetchWord(pc)
	if err != nil {
		return err
	}

	inst, err := e.decoder.Decode(word)
	if err != nil {
		return err
	}

	nextPC := pc + insts.WordBytes

	switch {
	case inst.Op == insts.OpHALT:
		e.halted = true

	case inst.Op == insts.OpCALL:
		if err := e.stack.Push(nextPC); err != nil {
			return err
		}
		nextPC = inst.Imm

	case inst.Op == insts.OpRET:
		ret, err := e.stack.Pop(pc)
		if err != nil {
			return err
		}
		nextPC = ret

	case inst.IsBranch():
		if e.alu.BranchTaken(inst.Op, e.regFile.Flags) {
			target := inst.Imm
			if inst.IsIndirectBranch() {
				target, err = e.memory.Read(inst.Imm, 4)
				if err != nil {
					return err
				}
			}
			nextPC = target
		}

	case inst.IsCompare():
		if inst.Op == insts.OpCMPF {
			e.regFile.Flags = e.alu.CompareFloat(
				e.regFile.ReadFloat(inst.F1), e.regFile.ReadFloat(inst.F2))
		} else {
			e.regFile.Flags = e.alu.Compare(
				e.regFile.ReadReg(inst.R1), e.regFile.ReadReg(inst.R2),
				inst.MemWidth())
		}

	case inst.IsLoad():
		addr := inst.Imm
		if inst.IsIndirect() {
			addr = e.regFile.ReadReg(inst.R2)
		}
		value, err := e.memory.Read(addr, inst.MemWidth())
		if err != nil {
			return err
		}
		if inst.IsSignedLoad() {
			value = SignExtend(value, inst.MemWidth())
		}
		e.regFile.WriteReg(inst.R1, value)

	case inst.IsStore():
		addr := inst.Imm
		if inst.IsIndirect() {
			addr = e.regFile.ReadReg(inst.R2)
		}
		if err := e.memory.Write(addr, inst.MemWidth(), e.regFile.ReadReg(inst.R1)); err != nil {
			return err
		}

	case inst.Op == insts.OpADDIM:
		e.regFile.WriteReg(inst.R1,
			e.alu.AddImm(e.regFile.ReadReg(inst.R1), inst.SignedImm()))

	case inst.Format == insts.Format5:
		e.regFile.WriteReg(inst.R1, e.alu.IntOp(inst.Op,
			e.regFile.ReadReg(inst.R2), e.regFile.ReadReg(inst.R3)))

	case inst.Format == insts.Format6:
		e.regFile.WriteFloat(inst.F1, e.alu.FloatOp(inst.Op,
			e.regFile.ReadFloat(inst.F2), e.regFile.ReadFloat(inst.F3)))
	}

	e.regFile.PC = nextPC
	e.instructionCount++
	return nil
}

// Run executes instructions until HALT, a fault, or the configured
// instruction limit.
func (e *Emulator) Run() error {
	limit := e.maxInstructions
	if limit == 0 {
		limit = math.MaxUint64
	}
	for !e.halted && e.instructionCount < limit {
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}
