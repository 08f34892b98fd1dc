package emu

import "github.com/gfslab/gfsim/insts"

// ALU implements GF32 arithmetic, logic, and compare operations. It is
// stateless: operands come in as values and results go out as values, so
// the same unit serves both the reference emulator and a pipeline that
// feeds it forwarded operands.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// IntOp executes a three-register integer operation (format 5). Ops with
// an I suffix use signed 32-bit arithmetic, U-suffixed ops unsigned.
// Division or modulo by zero yields 0.
func (a *ALU) IntOp(op insts.Op, x, y uint32) uint32 {
	switch op {
	case insts.OpADDI:
		return uint32(int32(x) + int32(y))
	case insts.OpSUBI:
		return uint32(int32(x) - int32(y))
	case insts.OpMULI:
		return uint32(int32(x) * int32(y))
	case insts.OpDIVI:
		if y == 0 {
			return 0
		}
		return uint32(int32(x) / int32(y))
	case insts.OpMODI:
		if y == 0 {
			return 0
		}
		return uint32(int32(x) % int32(y))
	case insts.OpRBSI:
		return uint32(int32(x) >> (y & 31))
	case insts.OpXORI:
		return x ^ y
	case insts.OpANDI:
		return x & y
	case insts.OpORI:
		return x | y
	case insts.OpADDU:
		return x + y
	case insts.OpSUBU:
		return x - y
	case insts.OpMULU:
		return x * y
	case insts.OpDIVU:
		if y == 0 {
			return 0
		}
		return x / y
	case insts.OpMODU:
		if y == 0 {
			return 0
		}
		return x % y
	}
	return 0
}

// AddImm executes ADDIM: x plus the sign-extended 21-bit immediate.
func (a *ALU) AddImm(x uint32, imm int32) uint32 {
	return uint32(int32(x) + imm)
}

// FloatOp executes a three-register float operation (format 6).
func (a *ALU) FloatOp(op insts.Op, x, y float32) float32 {
	switch op {
	case insts.OpADDF:
		return x + y
	case insts.OpSUBF:
		return x - y
	case insts.OpMULF:
		return x * y
	case insts.OpDIVF:
		return x / y
	}
	return 0
}

// Compare produces the flag results of an unsigned integer compare.
// Width masks both operands to the compared byte count first.
func (a *ALU) Compare(x, y uint32, width uint32) Flags {
	switch width {
	case 1:
		x, y = x&0xFF, y&0xFF
	case 2:
		x, y = x&0xFFFF, y&0xFFFF
	}
	return Flags{
		Equal:       x == y,
		LessThan:    x < y,
		LessOrEqual: x <= y,
	}
}

// CompareFloat produces the flag results of a float compare.
func (a *ALU) CompareFloat(x, y float32) Flags {
	return Flags{
		Equal:       x == y,
		LessThan:    x < y,
		LessOrEqual: x <= y,
	}
}

// BranchTaken evaluates a conditional jump against the flag register.
// CALL and RET are unconditional.
func (a *ALU) BranchTaken(op insts.Op, f Flags) bool {
	switch op {
	case insts.OpCALL, insts.OpRET:
		return true
	case insts.OpJE, insts.OpIJE:
		return f.Equal
	case insts.OpJNE, insts.OpIJNE:
		return !f.Equal
	case insts.OpJGT, insts.OpIJGT:
		return !f.LessOrEqual
	case insts.OpJLT, insts.OpIJLT:
		return f.LessThan
	case insts.OpJGTE, insts.OpIJGTE:
		return !f.LessThan
	case insts.OpJLTE, insts.OpIJLTE:
		return f.LessOrEqual
	}
	return false
}
