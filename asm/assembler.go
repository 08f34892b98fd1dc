// Package asm implements the GF32 assembler: line-oriented assembly text
// in, big-endian 32-bit instruction words out.
//
// Source format:
//
//	// comments run to end of line
//	loop:                   // labels name the next instruction's address
//	    LDIN32 R1, R2
//	    ADDIM  R2, 4
//	    JNE    loop         // format-1 operands may be labels
//	    HALT
//
// Operands are registers (R0..R15, F0..F15), decimal immediates, or label
// references. Instructions occupy four bytes each, starting at the load
// base passed to Assemble.
package asm

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gfslab/gfsim/insts"
)

// Program is an assembled GF32 program.
type Program struct {
	Words  []uint32
	Labels map[string]uint32
	Base   uint32
}

// SyntaxError reports an error in assembly source, with its line number.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var (
	labelDefRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):$`)
	labelRefRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	gprRe      = regexp.MustCompile(`^[Rr]([0-9]|1[0-5])$`)
	fprRe      = regexp.MustCompile(`^[Ff]([0-9]|1[0-5])$`)
)

// sourceLine is an instruction line surviving the first pass.
type sourceLine struct {
	num      int
	mnemonic string
	operands []string
}

// Assemble translates source text into a program loaded at base.
func Assemble(src string, base uint32) (*Program, error) {
	lines, labels, err := collectLabels(src, base)
	if err != nil {
		return nil, err
	}

	prog := &Program{Labels: labels, Base: base}
	for _, line := range lines {
		word, err := encodeLine(line, labels)
		if err != nil {
			return nil, err
		}
		prog.Words = append(prog.Words, word)
	}
	return prog, nil
}

// collectLabels is the first pass: strip comments, record label addresses,
// and tokenize instruction lines.
func collectLabels(src string, base uint32) ([]sourceLine, map[string]uint32, error) {
	labels := make(map[string]uint32)
	var lines []sourceLine

	addr := base
	for num, raw := range strings.Split(src, "\n") {
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := labelDefRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if _, dup := labels[name]; dup {
				return nil, nil, &SyntaxError{Line: num + 1,
					Msg: fmt.Sprintf("duplicate label %q", name)}
			}
			labels[name] = addr
			continue
		}

		fields := strings.Fields(line)
		mnemonic := strings.ToUpper(fields[0])
		var operands []string
		if len(fields) > 1 {
			rest := strings.Join(fields[1:], " ")
			for _, op := range strings.Split(rest, ",") {
				operands = append(operands, strings.TrimSpace(op))
			}
		}

		lines = append(lines, sourceLine{num: num + 1, mnemonic: mnemonic, operands: operands})
		addr += insts.WordBytes
	}

	return lines, labels, nil
}

// encodeLine is the second pass: resolve operands and pack the word.
func encodeLine(line sourceLine, labels map[string]uint32) (uint32, error) {
	op, ok := insts.OpByName(line.mnemonic)
	if !ok {
		return 0, &SyntaxError{Line: line.num,
			Msg: fmt.Sprintf("unknown mnemonic %q", line.mnemonic)}
	}

	inst := &insts.Instruction{Op: op}
	format := insts.FormatOf(op)

	want := operandCount(format)
	if len(line.operands) != want {
		return 0, &SyntaxError{Line: line.num,
			Msg: fmt.Sprintf("%s takes %d operand(s), got %d",
				line.mnemonic, want, len(line.operands))}
	}

	var err error
	switch format {
	case insts.Format0:
		// no operands

	case insts.Format1:
		inst.Imm, err = parseImmOrLabel(line, line.operands[0], labels)

	case insts.Format2:
		inst.R1, err = parseGPR(line, line.operands[0])
		if err == nil {
			inst.R2, err = parseGPR(line, line.operands[1])
		}

	case insts.Format3:
		inst.F1, err = parseFPR(line, line.operands[0])
		if err == nil {
			inst.F2, err = parseFPR(line, line.operands[1])
		}

	case insts.Format4:
		inst.R1, err = parseGPR(line, line.operands[0])
		if err == nil {
			inst.Imm, err = parseImmOrLabel(line, line.operands[1], labels)
		}

	case insts.Format5:
		inst.R1, err = parseGPR(line, line.operands[0])
		if err == nil {
			inst.R2, err = parseGPR(line, line.operands[1])
		}
		if err == nil {
			inst.R3, err = parseGPR(line, line.operands[2])
		}

	case insts.Format6:
		inst.F1, err = parseFPR(line, line.operands[0])
		if err == nil {
			inst.F2, err = parseFPR(line, line.operands[1])
		}
		if err == nil {
			inst.F3, err = parseFPR(line, line.operands[2])
		}
	}
	if err != nil {
		return 0, err
	}

	return insts.Encode(inst), nil
}

func operandCount(format insts.Format) int {
	switch format {
	case insts.Format0:
		return 0
	case insts.Format1:
		return 1
	case insts.Format2, insts.Format3, insts.Format4:
		return 2
	default:
		return 3
	}
}

func parseGPR(line sourceLine, tok string) (uint8, error) {
	m := gprRe.FindStringSubmatch(tok)
	if m == nil {
		return 0, &SyntaxError{Line: line.num,
			Msg: fmt.Sprintf("expected general register R0..R15, got %q", tok)}
	}
	n, _ := strconv.Atoi(m[1])
	return uint8(n), nil
}

func parseFPR(line sourceLine, tok string) (uint8, error) {
	m := fprRe.FindStringSubmatch(tok)
	if m == nil {
		return 0, &SyntaxError{Line: line.num,
			Msg: fmt.Sprintf("expected float register F0..F15, got %q", tok)}
	}
	n, _ := strconv.Atoi(m[1])
	return uint8(n), nil
}

// parseImmOrLabel resolves a decimal immediate (possibly negative) or a
// label reference into the 21-bit immediate field.
func parseImmOrLabel(line sourceLine, tok string, labels map[string]uint32) (uint32, error) {
	if labelRefRe.MatchString(tok) {
		addr, ok := labels[tok]
		if !ok {
			return 0, &SyntaxError{Line: line.num,
				Msg: fmt.Sprintf("undefined label %q", tok)}
		}
		if addr > insts.MaxImm {
			return 0, &SyntaxError{Line: line.num,
				Msg: fmt.Sprintf("label %q address %d exceeds the 21-bit immediate", tok, addr)}
		}
		return addr, nil
	}

	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, &SyntaxError{Line: line.num,
			Msg: fmt.Sprintf("bad operand %q", tok)}
	}
	if v > insts.MaxImm || v < -(1<<(insts.ImmWidth-1)) {
		return 0, &SyntaxError{Line: line.num,
			Msg: fmt.Sprintf("immediate %d does not fit in %d bits", v, insts.ImmWidth)}
	}
	return uint32(v) & insts.MaxImm, nil
}

// Bytes renders the program as big-endian words, the on-disk format.
func (p *Program) Bytes() []byte {
	out := make([]byte, len(p.Words)*insts.WordBytes)
	for i, w := range p.Words {
		binary.BigEndian.PutUint32(out[i*insts.WordBytes:], w)
	}
	return out
}
