// Package emu implements the GF32 architectural state and a functional
// (non-pipelined) reference emulator.
package emu

import "fmt"

// NumRegs is the number of general-purpose registers. All 16 are fully
// general; no register has hardwired behavior.
const NumRegs = 16

// NumFloatRegs is the number of float registers.
const NumFloatRegs = 16

// Flags is the comparison flag register. Only compare instructions set it.
type Flags struct {
	Equal       bool
	LessThan    bool
	LessOrEqual bool
}

// RegFile is the GF32 register file: 16 32-bit general-purpose registers,
// 16 float registers, the flag register, and the program counter.
type RegFile struct {
	X     [NumRegs]uint32
	F     [NumFloatRegs]float32
	Flags Flags
	PC    uint32
}

// NewRegFile creates a zeroed register file.
func NewRegFile() *RegFile {
	return &RegFile{}
}

// ReadReg reads a general-purpose register.
func (r *RegFile) ReadReg(id uint8) uint32 {
	return r.X[id]
}

// WriteReg writes a general-purpose register.
func (r *RegFile) WriteReg(id uint8, value uint32) {
	r.X[id] = value
}

// ReadFloat reads a float register.
func (r *RegFile) ReadFloat(id uint8) float32 {
	return r.F[id]
}

// WriteFloat writes a float register.
func (r *RegFile) WriteFloat(id uint8, value float32) {
	r.F[id] = value
}

// Reset zeroes all registers, the flags, and the PC.
func (r *RegFile) Reset() {
	*r = RegFile{}
}

func (f Flags) String() string {
	return fmt.Sprintf("eq=%t lt=%t le=%t", f.Equal, f.LessThan, f.LessOrEqual)
}
