// Package pipeline implements the 5-stage in-order GF32 pipeline with
// operand forwarding, load-use interlock, and static not-taken branch
// handling.
package pipeline

import (
	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/insts"
)

// IFIDRegister is the latch between Fetch and Decode.
type IFIDRegister struct {
	Valid bool
	PC    uint32
	Word  uint32

	// FetchFault carries a fetch-time fault down the pipeline so that it
	// only fires if the slot is not squashed first.
	FetchFault error
}

// Clear invalidates the latch.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister is the latch between Decode and Execute. Operand values are
// resolved in Execute against the forwarding unit; the latch carries only
// the source register numbers (-1 when a slot is unused).
type IDEXRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	// DecodeFault carries decode- or fetch-time faults toward Execute.
	DecodeFault error

	SrcA, SrcB   int // integer source registers
	FSrcA, FSrcB int // float source registers
}

// Clear invalidates the latch.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{SrcA: -1, SrcB: -1, FSrcA: -1, FSrcB: -1}
}

// EXMEMRegister is the latch between Execute and Memory.
type EXMEMRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	// ALUResult is the computed result, or the effective address for
	// loads and stores.
	ALUResult   uint32
	StoreValue  uint32
	FloatResult float32

	Flags    emu.Flags
	SetFlags bool

	DestReg  int // integer destination, -1 when none
	FDestReg int // float destination, -1 when none
}

// Clear invalidates the latch.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{DestReg: -1, FDestReg: -1}
}

// MEMWBRegister is the latch between Memory and Writeback.
type MEMWBRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	// Result is the value to commit: the ALU result, or the loaded data.
	Result      uint32
	FloatResult float32

	Flags    emu.Flags
	SetFlags bool

	DestReg  int
	FDestReg int
}

// Clear invalidates the latch.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{DestReg: -1, FDestReg: -1}
}
