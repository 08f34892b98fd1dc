package pipeline_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/insts"
	"github.com/gfslab/gfsim/timing/cache"
	"github.com/gfslab/gfsim/timing/pipeline"
)

// fastConfig keeps memory latencies minimal so cycle counts isolate
// pipeline behavior.
func fastConfig() cache.Config {
	return cache.Config{
		Levels:     []cache.LevelConfig{{CapacityBytes: 256, LineSizeBytes: 16, LatencyCycles: 1}},
		MainMemory: cache.MainMemoryConfig{SizeBytes: 4096, LatencyCycles: 1},
	}
}

func makePipeline(cfg cache.Config, words []uint32) *pipeline.Pipeline {
	hier, err := cache.NewHierarchy(cfg)
	Expect(err).ToNot(HaveOccurred())

	for i, w := range words {
		Expect(hier.Main().StoreWord(uint32(i)*insts.WordBytes, w)).To(Succeed())
	}

	memSize := uint32(cfg.MainMemory.SizeBytes)
	return pipeline.NewPipeline(hier, memSize-64, 64)
}

// runToStop ticks until the machine leaves StateRunning.
func runToStop(p *pipeline.Pipeline) {
	for i := 0; i < 100000 && p.State() == pipeline.StateRunning; i++ {
		p.Tick()
	}
	Expect(p.State()).ToNot(Equal(pipeline.StateRunning))
}

func enc(inst insts.Instruction) uint32 {
	return insts.Encode(&inst)
}

var _ = Describe("Pipeline", func() {
	It("should run a straight ALU program in 8 cycles", func() {
		p := makePipeline(cache.DefaultConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpXORI}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 0, Imm: 5}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 0, Imm: 7}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})

		runToStop(p)

		Expect(p.State()).To(Equal(pipeline.StateHalted))
		Expect(p.RegFile().ReadReg(0)).To(Equal(uint32(12)))
		Expect(p.Stats().Cycles).To(Equal(uint64(8)))
		Expect(p.Stats().Instructions).To(Equal(uint64(4)))
	})

	It("should charge exactly one extra cycle for a load-use dependence", func() {
		dependent := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpLD32, R1: 1, Imm: 100}),
			enc(insts.Instruction{Op: insts.OpADDI, R1: 3, R2: 1, R3: 1}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})
		independent := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpLD32, R1: 1, Imm: 100}),
			enc(insts.Instruction{Op: insts.OpADDI, R1: 3, R2: 4, R3: 4}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})

		runToStop(dependent)
		runToStop(independent)

		Expect(dependent.Stats().LoadUseStalls).To(Equal(uint64(1)))
		Expect(independent.Stats().LoadUseStalls).To(BeZero())
		Expect(dependent.Stats().Cycles - independent.Stats().Cycles).
			To(Equal(uint64(1)))
	})

	It("should forward a loaded value to the stalled consumer", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpLD32, R1: 1, Imm: 100}),
			enc(insts.Instruction{Op: insts.OpADDI, R1: 3, R2: 1, R3: 1}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})
		Expect(p.Hierarchy().Main().Write(100, 4, 21)).To(Succeed())

		runToStop(p)

		Expect(p.RegFile().ReadReg(3)).To(Equal(uint32(42)))
	})

	It("should squash the two instructions behind a taken branch", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpCMP32, R1: 0, R2: 0}),
			enc(insts.Instruction{Op: insts.OpJE, Imm: 16}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 99}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 99}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})

		runToStop(p)

		Expect(p.State()).To(Equal(pipeline.StateHalted))
		Expect(p.RegFile().ReadReg(1)).To(BeZero())
		Expect(p.Stats().TakenBranches).To(Equal(uint64(1)))
		Expect(p.Stats().SquashedInstructions).To(Equal(uint64(2)))
		Expect(p.Stats().LoadUseStalls).To(BeZero())
	})

	It("should resolve indirect jump targets through main memory", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpCMP32, R1: 0, R2: 0}),
			enc(insts.Instruction{Op: insts.OpIJE, Imm: 100}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 99}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 99}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})
		Expect(p.Hierarchy().Main().Write(100, 4, 16)).To(Succeed())

		runToStop(p)

		Expect(p.State()).To(Equal(pipeline.StateHalted))
		Expect(p.RegFile().ReadReg(1)).To(BeZero())
	})

	It("should run a call and return through the stack region", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpCALL, Imm: 12}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 2, Imm: 1}),
			enc(insts.Instruction{Op: insts.OpHALT}),
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 7}),
			enc(insts.Instruction{Op: insts.OpRET}),
		})

		runToStop(p)

		Expect(p.State()).To(Equal(pipeline.StateHalted))
		Expect(p.RegFile().ReadReg(1)).To(Equal(uint32(7)))
		Expect(p.RegFile().ReadReg(2)).To(Equal(uint32(1)))
	})

	It("should forward an ALU result into a following store", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 42}),
			enc(insts.Instruction{Op: insts.OpST32, R1: 1, Imm: 200}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})

		runToStop(p)

		Expect(p.State()).To(Equal(pipeline.StateHalted))
		Expect(p.Hierarchy().Main().Read(200, 4)).To(Equal(uint32(42)))
	})

	It("should sign-extend signed loads", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpLDI8, R1: 1, Imm: 100}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})
		Expect(p.Hierarchy().Main().Write(100, 1, 0xFE)).To(Succeed())

		runToStop(p)

		Expect(p.RegFile().ReadReg(1)).To(Equal(uint32(0xFFFFFFFE)))
	})

	Context("faults", func() {
		It("should fault on an out-of-bounds load and freeze state", func() {
			p := makePipeline(fastConfig(), []uint32{
				enc(insts.Instruction{Op: insts.OpADDIM, R1: 2, Imm: 1}),
				enc(insts.Instruction{Op: insts.OpLD32, R1: 1, Imm: 4096}),
				enc(insts.Instruction{Op: insts.OpADDIM, R1: 2, Imm: 1}),
				enc(insts.Instruction{Op: insts.OpHALT}),
			})

			runToStop(p)

			Expect(p.State()).To(Equal(pipeline.StateFaulted))
			var oob *emu.OutOfBoundsError
			Expect(errors.As(p.Fault(), &oob)).To(BeTrue())
			Expect(oob.Addr).To(Equal(uint32(4096)))

			// Older work committed, younger work never does, and further
			// ticks change nothing.
			Expect(p.RegFile().ReadReg(2)).To(Equal(uint32(1)))
			cycles := p.Stats().Cycles
			p.Tick()
			Expect(p.Stats().Cycles).To(Equal(cycles))
		})

		It("should fault on an invalid instruction word", func() {
			p := makePipeline(fastConfig(), []uint32{
				uint32(2) | 9<<3,
			})

			runToStop(p)

			Expect(p.State()).To(Equal(pipeline.StateFaulted))
			var invalid *insts.InvalidOpcodeError
			Expect(errors.As(p.Fault(), &invalid)).To(BeTrue())
		})

		It("should fault on return with an empty call stack", func() {
			p := makePipeline(fastConfig(), []uint32{
				enc(insts.Instruction{Op: insts.OpRET}),
			})

			runToStop(p)

			Expect(p.State()).To(Equal(pipeline.StateFaulted))
			var underflow *emu.StackUnderflowError
			Expect(errors.As(p.Fault(), &underflow)).To(BeTrue())
		})

		It("should not fault on invalid words a taken branch squashes", func() {
			p := makePipeline(fastConfig(), []uint32{
				enc(insts.Instruction{Op: insts.OpCMP32, R1: 0, R2: 0}),
				enc(insts.Instruction{Op: insts.OpJE, Imm: 16}),
				uint32(2) | 9<<3,
				uint32(2) | 9<<3,
				enc(insts.Instruction{Op: insts.OpHALT}),
			})

			runToStop(p)

			Expect(p.State()).To(Equal(pipeline.StateHalted))
			Expect(p.Fault()).ToNot(HaveOccurred())
		})
	})

	It("should return to a clean running state on reset", func() {
		p := makePipeline(fastConfig(), []uint32{
			enc(insts.Instruction{Op: insts.OpADDIM, R1: 1, Imm: 3}),
			enc(insts.Instruction{Op: insts.OpHALT}),
		})

		runToStop(p)
		Expect(p.RegFile().ReadReg(1)).To(Equal(uint32(3)))

		p.Reset()

		Expect(p.State()).To(Equal(pipeline.StateRunning))
		Expect(p.PC()).To(BeZero())
		Expect(p.RegFile().ReadReg(1)).To(BeZero())
		Expect(p.Stats().Cycles).To(BeZero())

		// Main memory still holds the program, so the run repeats.
		runToStop(p)
		Expect(p.State()).To(Equal(pipeline.StateHalted))
		Expect(p.RegFile().ReadReg(1)).To(Equal(uint32(3)))
	})
})
