package cache_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gfslab/gfsim/emu"
	"github.com/gfslab/gfsim/timing/cache"
)

var _ = Describe("Config", func() {
	It("should accept the default configuration", func() {
		Expect(cache.DefaultConfig().Validate()).To(Succeed())
	})

	It("should reject an empty level list", func() {
		cfg := cache.DefaultConfig()
		cfg.Levels = nil

		Expect(cfg.Validate()).ToNot(Succeed())
	})

	It("should reject a non-power-of-two line size", func() {
		cfg := cache.DefaultConfig()
		cfg.Levels[0].LineSizeBytes = 12

		Expect(cfg.Validate()).ToNot(Succeed())
	})

	It("should reject a capacity not divisible by the line size", func() {
		cfg := cache.DefaultConfig()
		cfg.Levels[1].CapacityBytes = 8200

		Expect(cfg.Validate()).ToNot(Succeed())
	})

	It("should reject zero-cycle latencies", func() {
		cfg := cache.DefaultConfig()
		cfg.Levels[0].LatencyCycles = 0
		Expect(cfg.Validate()).ToNot(Succeed())

		cfg = cache.DefaultConfig()
		cfg.MainMemory.LatencyCycles = 0
		Expect(cfg.Validate()).ToNot(Succeed())
	})
})

var _ = Describe("Hierarchy", func() {
	var h *cache.Hierarchy

	BeforeEach(func() {
		var err error
		h, err = cache.NewHierarchy(cache.DefaultConfig())
		Expect(err).ToNot(HaveOccurred())
	})

	It("should refuse an invalid configuration", func() {
		cfg := cache.DefaultConfig()
		cfg.Levels[0].LineSizeBytes = 3

		_, err := cache.NewHierarchy(cfg)

		Expect(err).To(HaveOccurred())
	})

	It("should charge every level plus main memory on a full miss", func() {
		result, err := h.Read(0x100, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Latency).To(Equal(1 + 4 + 20))
		Expect(result.HitLevel).To(Equal(-1))
	})

	It("should serve a repeated read from the first level", func() {
		Expect(h.Main().Write(0x100, 4, 0xDEADBEEF)).To(Succeed())
		_, err := h.Read(0x100, 4)
		Expect(err).ToNot(HaveOccurred())

		result, err := h.Read(0x100, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Latency).To(Equal(1))
		Expect(result.HitLevel).To(Equal(0))
		Expect(result.Value).To(Equal(uint32(0xDEADBEEF)))
	})

	It("should fall back to the second level after a first-level eviction", func() {
		// 0x100 and 0x100+1024 share a set in the 1 KiB first level but
		// not in the 8 KiB second level.
		_, err := h.Read(0x100, 4)
		Expect(err).ToNot(HaveOccurred())
		_, err = h.Read(0x100+1024, 4)
		Expect(err).ToNot(HaveOccurred())

		result, err := h.Read(0x100, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Latency).To(Equal(1 + 4))
		Expect(result.HitLevel).To(Equal(1))
	})

	It("should write through to main memory immediately", func() {
		latency, err := h.Write(0x200, 4, 0x12345678)

		Expect(err).ToNot(HaveOccurred())
		Expect(latency).To(Equal(1 + 4 + 20))
		Expect(h.Main().Read(0x200, 4)).To(Equal(uint32(0x12345678)))
	})

	It("should not allocate lines on a write miss", func() {
		_, err := h.Write(0x300, 4, 7)
		Expect(err).ToNot(HaveOccurred())

		result, err := h.Read(0x300, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.HitLevel).To(Equal(-1))
		Expect(result.Value).To(Equal(uint32(7)))
	})

	It("should update resident lines in place on a write", func() {
		_, err := h.Read(0x400, 4)
		Expect(err).ToNot(HaveOccurred())

		_, err = h.Write(0x400, 4, 0xCAFE)
		Expect(err).ToNot(HaveOccurred())
		result, err := h.Read(0x400, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.HitLevel).To(Equal(0))
		Expect(result.Value).To(Equal(uint32(0xCAFE)))
	})

	It("should serve reads that straddle a line boundary", func() {
		Expect(h.Main().Write(14, 4, 0xA1B2C3D4)).To(Succeed())

		result, err := h.Read(14, 4)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Value).To(Equal(uint32(0xA1B2C3D4)))

		result, err = h.Read(14, 4)
		Expect(err).ToNot(HaveOccurred())
		Expect(result.HitLevel).To(Equal(0))
		Expect(result.Value).To(Equal(uint32(0xA1B2C3D4)))
	})

	It("should count hits, misses, and reads", func() {
		_, err := h.Read(0x500, 4)
		Expect(err).ToNot(HaveOccurred())
		_, err = h.Read(0x500, 4)
		Expect(err).ToNot(HaveOccurred())

		stats := h.Stats()

		Expect(stats.Reads).To(Equal(uint64(2)))
		Expect(stats.Levels[0].Hits).To(Equal(uint64(1)))
		Expect(stats.Levels[0].Misses).To(Equal(uint64(1)))
	})

	It("should invalidate all levels on reset", func() {
		Expect(h.Main().Write(0x600, 4, 42)).To(Succeed())
		_, err := h.Read(0x600, 4)
		Expect(err).ToNot(HaveOccurred())

		h.Reset()
		result, err := h.Read(0x600, 4)

		Expect(err).ToNot(HaveOccurred())
		Expect(result.HitLevel).To(Equal(-1))
		Expect(result.Value).To(Equal(uint32(42)))
	})

	Context("with a small main memory", func() {
		BeforeEach(func() {
			cfg := cache.DefaultConfig()
			cfg.MainMemory.SizeBytes = 4096
			var err error
			h, err = cache.NewHierarchy(cfg)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should fault on out-of-bounds reads without touching any level", func() {
			_, err := h.Read(4096, 4)

			var oob *emu.OutOfBoundsError
			Expect(errors.As(err, &oob)).To(BeTrue())
			Expect(oob.Addr).To(Equal(uint32(4096)))
			Expect(h.Stats().Reads).To(BeZero())
		})

		It("should fault on accesses crossing the end of memory", func() {
			_, err := h.Write(4094, 4, 0)

			var oob *emu.OutOfBoundsError
			Expect(errors.As(err, &oob)).To(BeTrue())
			Expect(h.Stats().Writes).To(BeZero())
		})
	})
})
