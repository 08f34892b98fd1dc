package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/insts"
	"github.com/gfslab/gfsim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hazards *pipeline.HazardUnit
		exmem   pipeline.EXMEMRegister
		memwb   pipeline.MEMWBRegister
	)

	BeforeEach(func() {
		hazards = pipeline.NewHazardUnit()
		exmem.Clear()
		memwb.Clear()
	})

	Context("forwarding integer registers", func() {
		It("should prefer the EX/MEM result over MEM/WB", func() {
			exmem.Valid = true
			exmem.Inst = &insts.Instruction{Op: insts.OpADDI}
			exmem.DestReg = 3
			exmem.ALUResult = 99
			memwb.Valid = true
			memwb.DestReg = 3
			memwb.Result = 11

			value, ok := hazards.ForwardGPR(3, &exmem, &memwb)

			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(uint32(99)))
		})

		It("should skip loads in EX/MEM and fall through to MEM/WB", func() {
			exmem.Valid = true
			exmem.Inst = &insts.Instruction{Op: insts.OpLD32}
			exmem.DestReg = 3
			exmem.ALUResult = 0x100 // effective address, not data
			memwb.Valid = true
			memwb.DestReg = 3
			memwb.Result = 11

			value, ok := hazards.ForwardGPR(3, &exmem, &memwb)

			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(uint32(11)))
		})

		It("should not forward for unrelated registers", func() {
			memwb.Valid = true
			memwb.DestReg = 3
			memwb.Result = 11

			_, ok := hazards.ForwardGPR(4, &exmem, &memwb)

			Expect(ok).To(BeFalse())
		})

		It("should not forward for an unused source slot", func() {
			memwb.Valid = true
			memwb.DestReg = 0

			_, ok := hazards.ForwardGPR(-1, &exmem, &memwb)

			Expect(ok).To(BeFalse())
		})
	})

	Context("forwarding flags", func() {
		committed := emu.Flags{LessThan: true, LessOrEqual: true}

		It("should take an uncommitted compare from EX/MEM first", func() {
			exmem.Valid = true
			exmem.SetFlags = true
			exmem.Flags = emu.Flags{Equal: true, LessOrEqual: true}
			memwb.Valid = true
			memwb.SetFlags = true

			flags := hazards.ForwardFlags(&exmem, &memwb, committed)

			Expect(flags.Equal).To(BeTrue())
		})

		It("should fall back to MEM/WB, then the committed flags", func() {
			memwb.Valid = true
			memwb.SetFlags = true
			memwb.Flags = emu.Flags{Equal: true}

			Expect(hazards.ForwardFlags(&exmem, &memwb, committed).Equal).To(BeTrue())

			memwb.Clear()
			Expect(hazards.ForwardFlags(&exmem, &memwb, committed)).To(Equal(committed))
		})
	})

	Context("detecting load-use hazards", func() {
		var idex pipeline.IDEXRegister

		BeforeEach(func() {
			idex.Clear()
			idex.Valid = true
			idex.Inst = &insts.Instruction{Op: insts.OpLD32, R1: 5}
		})

		It("should fire when either source reads the load destination", func() {
			Expect(hazards.LoadUseHazard(&idex, 5, -1)).To(BeTrue())
			Expect(hazards.LoadUseHazard(&idex, -1, 5)).To(BeTrue())
		})

		It("should not fire for unrelated sources", func() {
			Expect(hazards.LoadUseHazard(&idex, 4, 6)).To(BeFalse())
		})

		It("should not fire when Execute holds a non-load", func() {
			idex.Inst = &insts.Instruction{Op: insts.OpADDI, R1: 5}

			Expect(hazards.LoadUseHazard(&idex, 5, -1)).To(BeFalse())
		})

		It("should not fire on a bubble", func() {
			idex.Clear()

			Expect(hazards.LoadUseHazard(&idex, 5, -1)).To(BeFalse())
		})
	})
})
