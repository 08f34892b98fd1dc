// Package insts provides instruction definitions, encoding, and decoding
// for the GF32 instruction set.
//
// GF32 is a 32-bit RISC-style ISA with fixed-width instruction words. The
// low three bits of every word select one of seven encoding formats; the
// remaining bits hold a format-specific opcode, up to three 4-bit register
// fields, and an optional 21-bit immediate.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x00000035) // XORI R0, R0, R0
//	fmt.Printf("Op: %v, R1: %d, R2: %d, R3: %d\n", inst.Op, inst.R1, inst.R2, inst.R3)
package insts

import "fmt"

// Op identifies a GF32 operation.
type Op uint8

// GF32 opcodes.
const (
	OpUnknown Op = iota

	// Format 0: control, no operands.
	OpRET
	OpHALT

	// Format 1: control flow with a 21-bit immediate.
	OpCALL
	OpJE
	OpJNE
	OpJGT
	OpJLT
	OpJGTE
	OpJLTE
	OpIJE
	OpIJNE
	OpIJGT
	OpIJLT
	OpIJGTE
	OpIJLTE

	// Format 2: two-register compares and indirect loads/stores.
	OpCMP8
	OpCMP16
	OpCMP32
	OpLDIN8
	OpLDIN16
	OpLDIN32
	OpSTIN8
	OpSTIN16
	OpSTIN32

	// Format 3: float compare.
	OpCMPF

	// Format 4: register + immediate loads/stores and ADDIM.
	OpLD8
	OpLD16
	OpLD32
	OpLDI8
	OpLDI16
	OpLDI32
	OpST8
	OpST16
	OpST32
	OpADDIM

	// Format 5: three-register integer arithmetic.
	OpADDI
	OpSUBI
	OpMULI
	OpDIVI
	OpMODI
	OpRBSI
	OpXORI
	OpANDI
	OpORI
	OpADDU
	OpSUBU
	OpMULU
	OpDIVU
	OpMODU

	// Format 6: three-register float arithmetic.
	OpADDF
	OpSUBF
	OpMULF
	OpDIVF
)

// Format identifies one of the seven GF32 encoding formats. The format
// number is stored verbatim in the low three bits of the instruction word.
type Format uint8

// Instruction formats.
const (
	Format0 Format = iota // opcode only (RET, HALT)
	Format1               // opcode + imm21 (CALL, conditional jumps)
	Format2               // opcode + r1 + r2 (compares, indirect memory)
	Format3               // opcode + f1 + f2 (CMPF)
	Format4               // opcode + r1 + imm21 (direct memory, ADDIM)
	Format5               // opcode + r1 + r2 + r3 (integer ALU)
	Format6               // opcode + f1 + f2 + f3 (float ALU)
)

// opcode field width in bits, indexed by format.
var opcodeWidth = [7]uint{1, 4, 4, 1, 4, 4, 2}

// ImmWidth is the width of the immediate field in formats 1 and 4.
const ImmWidth = 21

// MaxImm is the largest encodable immediate value.
const MaxImm = 1<<ImmWidth - 1

// WordBytes is the size of one instruction word in memory.
const WordBytes = 4

// opcode tables, indexed by format then by the raw opcode field value.
var formatOps = [7][]Op{
	{OpRET, OpHALT},
	{OpCALL, OpJE, OpJNE, OpJGT, OpJLT, OpJGTE, OpJLTE,
		OpIJE, OpIJNE, OpIJGT, OpIJLT, OpIJGTE, OpIJLTE},
	{OpCMP8, OpCMP16, OpCMP32, OpLDIN8, OpLDIN16, OpLDIN32,
		OpSTIN8, OpSTIN16, OpSTIN32},
	{OpCMPF},
	{OpLD8, OpLD16, OpLD32, OpLDI8, OpLDI16, OpLDI32,
		OpST8, OpST16, OpST32, OpADDIM},
	{OpADDI, OpSUBI, OpMULI, OpDIVI, OpMODI, OpRBSI, OpXORI,
		OpANDI, OpORI, OpADDU, OpSUBU, OpMULU, OpDIVU, OpMODU},
	{OpADDF, OpSUBF, OpMULF, OpDIVF},
}

var opNames = map[Op]string{
	OpRET: "RET", OpHALT: "HALT",
	OpCALL: "CALL",
	OpJE:   "JE", OpJNE: "JNE", OpJGT: "JGT", OpJLT: "JLT",
	OpJGTE: "JGTE", OpJLTE: "JLTE",
	OpIJE: "IJE", OpIJNE: "IJNE", OpIJGT: "IJGT", OpIJLT: "IJLT",
	OpIJGTE: "IJGTE", OpIJLTE: "IJLTE",
	OpCMP8: "CMP8", OpCMP16: "CMP16", OpCMP32: "CMP32",
	OpLDIN8: "LDIN8", OpLDIN16: "LDIN16", OpLDIN32: "LDIN32",
	OpSTIN8: "STIN8", OpSTIN16: "STIN16", OpSTIN32: "STIN32",
	OpCMPF: "CMPF",
	OpLD8:  "LD8", OpLD16: "LD16", OpLD32: "LD32",
	OpLDI8: "LDI8", OpLDI16: "LDI16", OpLDI32: "LDI32",
	OpST8: "ST8", OpST16: "ST16", OpST32: "ST32",
	OpADDIM: "ADDIM",
	OpADDI:  "ADDI", OpSUBI: "SUBI", OpMULI: "MULI", OpDIVI: "DIVI",
	OpMODI: "MODI", OpRBSI: "RBSI", OpXORI: "XORI", OpANDI: "ANDI",
	OpORI: "ORI", OpADDU: "ADDU", OpSUBU: "SUBU", OpMULU: "MULU",
	OpDIVU: "DIVU", OpMODU: "MODU",
	OpADDF: "ADDF", OpSUBF: "SUBF", OpMULF: "MULF", OpDIVF: "DIVF",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Instruction is a decoded GF32 instruction.
type Instruction struct {
	Op     Op
	Format Format
	Word   uint32 // raw encoding

	// Integer register fields. R1 is the destination where one exists.
	R1, R2, R3 uint8

	// Float register fields.
	F1, F2, F3 uint8

	// Raw 21-bit immediate for formats 1 and 4.
	Imm uint32
}

// SignedImm returns the immediate sign-extended from 21 bits.
func (i *Instruction) SignedImm() int32 {
	return int32(i.Imm<<(32-ImmWidth)) >> (32 - ImmWidth)
}

// MemWidth returns the access width in bytes for load/store/compare
// operations, or 0 for instructions that carry no width.
func (i *Instruction) MemWidth() uint32 {
	switch i.Op {
	case OpCMP8, OpLDIN8, OpSTIN8, OpLD8, OpLDI8, OpST8:
		return 1
	case OpCMP16, OpLDIN16, OpSTIN16, OpLD16, OpLDI16, OpST16:
		return 2
	case OpCMP32, OpLDIN32, OpSTIN32, OpLD32, OpLDI32, OpST32:
		return 4
	}
	return 0
}

// IsLoad reports whether the instruction reads data memory into a register.
func (i *Instruction) IsLoad() bool {
	switch i.Op {
	case OpLD8, OpLD16, OpLD32, OpLDI8, OpLDI16, OpLDI32,
		OpLDIN8, OpLDIN16, OpLDIN32:
		return true
	}
	return false
}

// IsStore reports whether the instruction writes data memory.
func (i *Instruction) IsStore() bool {
	switch i.Op {
	case OpST8, OpST16, OpST32, OpSTIN8, OpSTIN16, OpSTIN32:
		return true
	}
	return false
}

// IsSignedLoad reports whether a load sign-extends its result.
func (i *Instruction) IsSignedLoad() bool {
	switch i.Op {
	case OpLDI8, OpLDI16, OpLDI32:
		return true
	}
	return false
}

// IsIndirect reports whether a memory access takes its address from a
// register rather than the immediate field.
func (i *Instruction) IsIndirect() bool {
	switch i.Op {
	case OpLDIN8, OpLDIN16, OpLDIN32, OpSTIN8, OpSTIN16, OpSTIN32:
		return true
	}
	return false
}

// IsBranch reports whether the instruction can redirect the PC.
func (i *Instruction) IsBranch() bool {
	switch i.Op {
	case OpCALL, OpRET,
		OpJE, OpJNE, OpJGT, OpJLT, OpJGTE, OpJLTE,
		OpIJE, OpIJNE, OpIJGT, OpIJLT, OpIJGTE, OpIJLTE:
		return true
	}
	return false
}

// IsIndirectBranch reports whether a jump reads its target from memory.
func (i *Instruction) IsIndirectBranch() bool {
	switch i.Op {
	case OpIJE, OpIJNE, OpIJGT, OpIJLT, OpIJGTE, OpIJLTE:
		return true
	}
	return false
}

// IsCompare reports whether the instruction sets the flag register.
func (i *Instruction) IsCompare() bool {
	switch i.Op {
	case OpCMP8, OpCMP16, OpCMP32, OpCMPF:
		return true
	}
	return false
}

// WritesGPR reports whether the instruction writes an integer register.
// The destination, where one exists, is always R1.
func (i *Instruction) WritesGPR() bool {
	if i.IsLoad() {
		return true
	}
	switch i.Format {
	case Format5:
		return true
	case Format4:
		return i.Op == OpADDIM
	}
	return false
}

// WritesFPR reports whether the instruction writes a float register.
// The destination is F1.
func (i *Instruction) WritesFPR() bool {
	return i.Format == Format6
}

// ReadsGPR returns the integer registers the instruction reads.
func (i *Instruction) ReadsGPR() []uint8 {
	switch i.Op {
	case OpCMP8, OpCMP16, OpCMP32:
		return []uint8{i.R1, i.R2}
	case OpLDIN8, OpLDIN16, OpLDIN32:
		return []uint8{i.R2}
	case OpSTIN8, OpSTIN16, OpSTIN32:
		return []uint8{i.R1, i.R2}
	case OpST8, OpST16, OpST32:
		return []uint8{i.R1}
	case OpADDIM:
		return []uint8{i.R1}
	}
	if i.Format == Format5 {
		return []uint8{i.R2, i.R3}
	}
	return nil
}

// ReadsFPR returns the float registers the instruction reads.
func (i *Instruction) ReadsFPR() []uint8 {
	switch i.Format {
	case Format3:
		return []uint8{i.F1, i.F2}
	case Format6:
		return []uint8{i.F2, i.F3}
	}
	return nil
}

func (i *Instruction) String() string {
	switch i.Format {
	case Format0:
		return i.Op.String()
	case Format1:
		return fmt.Sprintf("%v %d", i.Op, i.Imm)
	case Format2:
		return fmt.Sprintf("%v R%d, R%d", i.Op, i.R1, i.R2)
	case Format3:
		return fmt.Sprintf("%v F%d, F%d", i.Op, i.F1, i.F2)
	case Format4:
		return fmt.Sprintf("%v R%d, %d", i.Op, i.R1, i.Imm)
	case Format5:
		return fmt.Sprintf("%v R%d, R%d, R%d", i.Op, i.R1, i.R2, i.R3)
	case Format6:
		return fmt.Sprintf("%v F%d, F%d, F%d", i.Op, i.F1, i.F2, i.F3)
	}
	return i.Op.String()
}

// OpByName resolves an assembly mnemonic to its opcode.
func OpByName(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

// FormatOf returns the encoding format an opcode belongs to.
func FormatOf(op Op) Format {
	return opFormats[op]
}

var (
	opsByName = map[string]Op{}
	opFormats = map[Op]Format{}
	opValues  = map[Op]uint32{}
)

func init() {
	for f, ops := range formatOps {
		for v, op := range ops {
			opsByName[op.String()] = op
			opFormats[op] = Format(f)
			opValues[op] = uint32(v)
		}
	}
}
