package insts

import "fmt"

// InvalidOpcodeError reports an instruction word whose format/opcode
// combination names no GF32 instruction. It is a fatal machine fault.
type InvalidOpcodeError struct {
	Word   uint32
	Format Format
	Opcode uint32
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf(
		"invalid opcode: word 0x%08x (format %d, opcode %d)",
		e.Word, e.Format, e.Opcode)
}

// Decoder decodes GF32 machine words into instructions.
type Decoder struct{}

// NewDecoder creates a new GF32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit GF32 instruction word. Words that do not encode
// a valid instruction return an *InvalidOpcodeError.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	format := Format(word & 0x7)
	rest := word >> 3

	if format > Format6 {
		return nil, &InvalidOpcodeError{Word: word, Format: format}
	}

	width := opcodeWidth[format]
	opcode := rest & (1<<width - 1)
	rest >>= width

	ops := formatOps[format]
	if opcode >= uint32(len(ops)) {
		return nil, &InvalidOpcodeError{Word: word, Format: format, Opcode: opcode}
	}

	inst := &Instruction{
		Op:     ops[opcode],
		Format: format,
		Word:   word,
	}

	switch format {
	case Format1:
		inst.Imm = rest & MaxImm
	case Format2:
		inst.R1 = uint8(rest & 0xF)
		inst.R2 = uint8(rest >> 4 & 0xF)
	case Format3:
		inst.F1 = uint8(rest & 0xF)
		inst.F2 = uint8(rest >> 4 & 0xF)
	case Format4:
		inst.R1 = uint8(rest & 0xF)
		inst.Imm = rest >> 4 & MaxImm
	case Format5:
		inst.R1 = uint8(rest & 0xF)
		inst.R2 = uint8(rest >> 4 & 0xF)
		inst.R3 = uint8(rest >> 8 & 0xF)
	case Format6:
		inst.F1 = uint8(rest & 0xF)
		inst.F2 = uint8(rest >> 4 & 0xF)
		inst.F3 = uint8(rest >> 8 & 0xF)
	}

	return inst, nil
}

// Encode packs an instruction back into its 32-bit word form. Fields that
// the instruction's format does not carry are ignored.
func Encode(inst *Instruction) uint32 {
	format := FormatOf(inst.Op)
	word := uint32(format)
	shift := uint(3)

	word |= opValues[inst.Op] << shift
	shift += opcodeWidth[format]

	switch format {
	case Format1:
		word |= (inst.Imm & MaxImm) << shift
	case Format2:
		word |= uint32(inst.R1&0xF) << shift
		word |= uint32(inst.R2&0xF) << (shift + 4)
	case Format3:
		word |= uint32(inst.F1&0xF) << shift
		word |= uint32(inst.F2&0xF) << (shift + 4)
	case Format4:
		word |= uint32(inst.R1&0xF) << shift
		word |= (inst.Imm & MaxImm) << (shift + 4)
	case Format5:
		word |= uint32(inst.R1&0xF) << shift
		word |= uint32(inst.R2&0xF) << (shift + 4)
		word |= uint32(inst.R3&0xF) << (shift + 8)
	case Format6:
		word |= uint32(inst.F1&0xF) << shift
		word |= uint32(inst.F2&0xF) << (shift + 4)
		word |= uint32(inst.F3&0xF) << (shift + 8)
	}

	return word
}
