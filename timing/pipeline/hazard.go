package pipeline

import "github.com/gfslab/gfsim/emu"

// HazardUnit resolves data hazards. Forwarding prefers the EX/MEM latch
// (younger result) over MEM/WB; results older than that have committed and
// are read from the register file directly.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// ForwardGPR returns the in-flight value of an integer register, if one
// exists. Loads in EX/MEM are skipped: their data is not available until
// the Memory stage completes, and the load-use interlock guarantees no
// consumer reaches Execute that early.
func (h *HazardUnit) ForwardGPR(
	reg int,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) (uint32, bool) {
	if reg < 0 {
		return 0, false
	}
	if exmem.Valid && exmem.DestReg == reg && !exmem.Inst.IsLoad() {
		return exmem.ALUResult, true
	}
	if memwb.Valid && memwb.DestReg == reg {
		return memwb.Result, true
	}
	return 0, false
}

// ForwardFPR returns the in-flight value of a float register, if one
// exists.
func (h *HazardUnit) ForwardFPR(
	reg int,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) (float32, bool) {
	if reg < 0 {
		return 0, false
	}
	if exmem.Valid && exmem.FDestReg == reg {
		return exmem.FloatResult, true
	}
	if memwb.Valid && memwb.FDestReg == reg {
		return memwb.FloatResult, true
	}
	return 0, false
}

// ForwardFlags returns the newest flag state visible to Execute: an
// uncommitted compare result in EX/MEM or MEM/WB, or the committed flags.
// This lets a conditional jump directly follow its compare with no stall.
func (h *HazardUnit) ForwardFlags(
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
	committed emu.Flags,
) emu.Flags {
	if exmem.Valid && exmem.SetFlags {
		return exmem.Flags
	}
	if memwb.Valid && memwb.SetFlags {
		return memwb.Flags
	}
	return committed
}

// LoadUseHazard reports whether the instruction entering Execute next
// consumes the destination of the load currently in Execute. Such a
// consumer must wait exactly one bubble; forwarding from MEM/WB covers it
// afterwards.
func (h *HazardUnit) LoadUseHazard(idex *IDEXRegister, srcA, srcB int) bool {
	if !idex.Valid || idex.Inst == nil || !idex.Inst.IsLoad() {
		return false
	}
	dest := int(idex.Inst.R1)
	return (srcA >= 0 && srcA == dest) || (srcB >= 0 && srcB == dest)
}
