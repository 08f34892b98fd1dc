package insts_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gfslab/gfsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("format 0", func() {
		It("should decode RET", func() {
			inst, err := decoder.Decode(0x00000000)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpRET))
			Expect(inst.Format).To(Equal(insts.Format0))
		})

		It("should decode HALT", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpHALT})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpHALT))
		})
	})

	Describe("format 1", func() {
		It("should decode CALL with its immediate", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpCALL, Imm: 1024})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpCALL))
			Expect(inst.Imm).To(Equal(uint32(1024)))
			Expect(inst.IsBranch()).To(BeTrue())
		})

		It("should mark indirect jumps", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpIJNE, Imm: 8})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.IsIndirectBranch()).To(BeTrue())
		})
	})

	Describe("format 2", func() {
		It("should decode CMP32 register fields", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpCMP32, R1: 3, R2: 12})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpCMP32))
			Expect(inst.R1).To(Equal(uint8(3)))
			Expect(inst.R2).To(Equal(uint8(12)))
			Expect(inst.MemWidth()).To(Equal(uint32(4)))
		})

		It("should decode LDIN16 as an indirect load", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpLDIN16, R1: 1, R2: 2})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.IsLoad()).To(BeTrue())
			Expect(inst.IsIndirect()).To(BeTrue())
			Expect(inst.MemWidth()).To(Equal(uint32(2)))
		})
	})

	Describe("format 4", func() {
		It("should decode ADDIM register and immediate", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpADDIM, R1: 7, Imm: 42})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADDIM))
			Expect(inst.R1).To(Equal(uint8(7)))
			Expect(inst.Imm).To(Equal(uint32(42)))
		})

		It("should sign-extend negative immediates", func() {
			negFive := int32(-5)
			imm := uint32(negFive) & insts.MaxImm
			word := insts.Encode(&insts.Instruction{Op: insts.OpADDIM, R1: 0, Imm: imm})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.SignedImm()).To(Equal(int32(-5)))
		})

		It("should distinguish signed from unsigned loads", func() {
			signed := insts.Encode(&insts.Instruction{Op: insts.OpLDI8, R1: 1, Imm: 100})
			unsigned := insts.Encode(&insts.Instruction{Op: insts.OpLD8, R1: 1, Imm: 100})

			si, err := decoder.Decode(signed)
			Expect(err).ToNot(HaveOccurred())
			ui, err := decoder.Decode(unsigned)
			Expect(err).ToNot(HaveOccurred())

			Expect(si.IsSignedLoad()).To(BeTrue())
			Expect(ui.IsSignedLoad()).To(BeFalse())
		})
	})

	Describe("format 5", func() {
		It("should decode XORI R0, R0, R0 from its canonical word", func() {
			inst, err := decoder.Decode(0x00000035)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpXORI))
			Expect(inst.R1).To(Equal(uint8(0)))
			Expect(inst.R2).To(Equal(uint8(0)))
			Expect(inst.R3).To(Equal(uint8(0)))
		})

		It("should decode all three register fields", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpSUBU, R1: 1, R2: 14, R3: 9})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.R1).To(Equal(uint8(1)))
			Expect(inst.R2).To(Equal(uint8(14)))
			Expect(inst.R3).To(Equal(uint8(9)))
			Expect(inst.WritesGPR()).To(BeTrue())
		})
	})

	Describe("format 6", func() {
		It("should decode float register fields", func() {
			word := insts.Encode(&insts.Instruction{Op: insts.OpMULF, F1: 4, F2: 5, F3: 6})

			inst, err := decoder.Decode(word)

			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMULF))
			Expect(inst.F1).To(Equal(uint8(4)))
			Expect(inst.F2).To(Equal(uint8(5)))
			Expect(inst.F3).To(Equal(uint8(6)))
			Expect(inst.WritesFPR()).To(BeTrue())
		})
	})

	Describe("invalid encodings", func() {
		It("should reject an out-of-range opcode", func() {
			// Format 2 defines opcodes 0..8; 9 names nothing.
			word := uint32(2) | 9<<3

			_, err := decoder.Decode(word)

			Expect(err).To(HaveOccurred())
			var invalid *insts.InvalidOpcodeError
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(invalid.Word).To(Equal(word))
		})

		It("should reject format 7", func() {
			_, err := decoder.Decode(0x00000007)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("round trips", func() {
		It("should re-encode every decoded instruction to the same word", func() {
			words := []uint32{
				insts.Encode(&insts.Instruction{Op: insts.OpHALT}),
				insts.Encode(&insts.Instruction{Op: insts.OpJLTE, Imm: 96}),
				insts.Encode(&insts.Instruction{Op: insts.OpSTIN8, R1: 15, R2: 1}),
				insts.Encode(&insts.Instruction{Op: insts.OpCMPF, F1: 2, F2: 3}),
				insts.Encode(&insts.Instruction{Op: insts.OpST32, R1: 6, Imm: 2000}),
				insts.Encode(&insts.Instruction{Op: insts.OpMODU, R1: 1, R2: 2, R3: 3}),
				insts.Encode(&insts.Instruction{Op: insts.OpDIVF, F1: 1, F2: 2, F3: 3}),
			}

			for _, word := range words {
				inst, err := decoder.Decode(word)
				Expect(err).ToNot(HaveOccurred())
				Expect(insts.Encode(inst)).To(Equal(word))
			}
		})
	})
})
