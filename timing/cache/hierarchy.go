package cache

import (
	"log/slog"

	"github.com/gfslab/gfsim/emu"
)

// AccessResult describes a completed, timed hierarchy access.
type AccessResult struct {
	// Value is the data read, zero-extended (reads only).
	Value uint32
	// Latency is the total cycle cost: the sum of the latencies of every
	// level probed, plus main memory on a full miss.
	Latency int
	// HitLevel is the index of the level that served a read, or -1 when
	// main memory did.
	HitLevel int
}

// LevelStats holds per-level counters.
type LevelStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Statistics holds hierarchy performance counters.
type Statistics struct {
	Reads  uint64
	Writes uint64
	Levels []LevelStats
}

// Hierarchy is the timed memory system: N direct-mapped cache levels over
// flat main memory.
//
// Reads probe level 0 outward, paying every probed level's latency. A hit
// at level i serves the read and changes no other level. A full miss reads
// main memory and installs the line into every level that missed. Writes
// are write-through and no-allocate: every level holding the line is
// updated in place, main memory always is, and the cost is the latency sum
// of all levels plus main memory.
type Hierarchy struct {
	config Config
	levels []*level
	main   *emu.Memory
	stats  Statistics
	logger *slog.Logger
}

// HierarchyOption configures a Hierarchy.
type HierarchyOption func(*Hierarchy)

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) HierarchyOption {
	return func(h *Hierarchy) {
		h.logger = logger
	}
}

// NewHierarchy validates the configuration and builds the hierarchy,
// including its main memory.
func NewHierarchy(config Config, opts ...HierarchyOption) (*Hierarchy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	h := &Hierarchy{
		config: config,
		main:   emu.NewMemory(uint32(config.MainMemory.SizeBytes)),
		logger: slog.Default(),
		stats:  Statistics{Levels: make([]LevelStats, len(config.Levels))},
	}
	for _, lc := range config.Levels {
		h.levels = append(h.levels, newLevel(lc))
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Config returns the hierarchy configuration.
func (h *Hierarchy) Config() Config {
	return h.config
}

// Main exposes the backing main memory. Write-through keeps it coherent,
// so untimed inspection (debugger, instruction fetch) reads it directly.
func (h *Hierarchy) Main() *emu.Memory {
	return h.main
}

// Stats returns a copy of the hierarchy counters.
func (h *Hierarchy) Stats() Statistics {
	out := h.stats
	out.Levels = append([]LevelStats(nil), h.stats.Levels...)
	return out
}

// Read performs a timed read of width 1, 2, or 4 bytes. Out-of-bounds
// accesses fault without touching any level.
func (h *Hierarchy) Read(addr, width uint32) (AccessResult, error) {
	if err := h.checkBounds(addr, width); err != nil {
		return AccessResult{}, err
	}
	h.stats.Reads++

	result := AccessResult{HitLevel: -1}
	for i, l := range h.levels {
		result.Latency += l.config.LatencyCycles
		if l.covers(addr, width) {
			h.stats.Levels[i].Hits++
			result.HitLevel = i
			result.Value = decodeLE(l.readBytes(addr, width))
			return result, nil
		}
		h.stats.Levels[i].Misses++
	}

	// Full miss: read main memory and fill every level.
	result.Latency += h.config.MainMemory.LatencyCycles
	value, err := h.main.Read(addr, width)
	if err != nil {
		return AccessResult{}, err
	}
	result.Value = value

	for i, l := range h.levels {
		h.stats.Levels[i].Evictions += l.installRange(addr, width, h.main)
	}

	h.logger.Debug("hierarchy read miss",
		"addr", addr, "width", width, "latency", result.Latency)
	return result, nil
}

// Write performs a timed write-through of width 1, 2, or 4 bytes. Returns
// the cycle cost.
func (h *Hierarchy) Write(addr, width, value uint32) (int, error) {
	if err := h.checkBounds(addr, width); err != nil {
		return 0, err
	}
	h.stats.Writes++

	data := encodeLE(value, width)
	latency := 0
	for _, l := range h.levels {
		latency += l.config.LatencyCycles
		l.updateInPlace(addr, data)
	}
	latency += h.config.MainMemory.LatencyCycles

	if err := h.main.WriteBytes(addr, data); err != nil {
		return 0, err
	}
	return latency, nil
}

// Reset invalidates every cache level and clears the counters. Main memory
// contents are left alone; reloading them is the controller's job.
func (h *Hierarchy) Reset() {
	for _, l := range h.levels {
		l.reset()
	}
	h.stats = Statistics{Levels: make([]LevelStats, len(h.levels))}
}

func (h *Hierarchy) checkBounds(addr, width uint32) error {
	if uint64(addr)+uint64(width) > uint64(h.main.Size()) {
		return &emu.OutOfBoundsError{Addr: addr, Width: width, Size: h.main.Size()}
	}
	return nil
}

// covers reports whether every byte of [addr, addr+width) is resident.
// An access can straddle a line boundary; both lines must then be valid.
func (l *level) covers(addr, width uint32) bool {
	for _, seg := range l.segments(addr, width) {
		if l.lookup(seg.addr) == nil {
			return false
		}
	}
	return true
}

// readBytes assembles the bytes of a resident access from the level's
// line buffers. Callers must have checked covers first.
func (l *level) readBytes(addr, width uint32) []byte {
	out := make([]byte, 0, width)
	for _, seg := range l.segments(addr, width) {
		block := l.lookup(seg.addr)
		l.directory.Visit(block)
		offset := seg.addr % uint32(l.config.LineSizeBytes)
		out = append(out, l.data(block)[offset:offset+seg.n]...)
	}
	return out
}

// updateInPlace writes the bytes of data into whichever covering lines are
// resident. Lines that miss are left untouched (no-allocate).
func (l *level) updateInPlace(addr uint32, data []byte) {
	consumed := uint32(0)
	for _, seg := range l.segments(addr, uint32(len(data))) {
		if block := l.lookup(seg.addr); block != nil {
			offset := seg.addr % uint32(l.config.LineSizeBytes)
			copy(l.data(block)[offset:offset+seg.n], data[consumed:consumed+seg.n])
			l.directory.Visit(block)
		}
		consumed += seg.n
	}
}

// installRange fills every line covering [addr, addr+width) from main
// memory and returns the number of valid lines evicted.
func (l *level) installRange(addr, width uint32, main *emu.Memory) uint64 {
	evictions := uint64(0)
	for _, seg := range l.segments(addr, width) {
		lineAddr := uint32(l.lineAddr(seg.addr))
		lineData, err := main.ReadBytes(lineAddr, uint32(l.config.LineSizeBytes))
		if err != nil {
			// The access itself is in bounds, so a partial trailing line
			// means main memory is not line-aligned in size. Skip the fill.
			continue
		}
		if _, evicted := l.install(seg.addr, lineData); evicted {
			evictions++
		}
	}
	return evictions
}

// segment is a sub-range of an access that lies within one cache line.
type segment struct {
	addr uint32
	n    uint32
}

// segments splits [addr, addr+width) at line boundaries.
func (l *level) segments(addr, width uint32) []segment {
	lineSize := uint32(l.config.LineSizeBytes)
	var segs []segment
	for width > 0 {
		n := lineSize - addr%lineSize
		if n > width {
			n = width
		}
		segs = append(segs, segment{addr: addr, n: n})
		addr += n
		width -= n
	}
	return segs
}

func decodeLE(data []byte) uint32 {
	var v uint32
	for i, b := range data {
		v |= uint32(b) << (8 * i)
	}
	return v
}

func encodeLE(value, width uint32) []byte {
	out := make([]byte, width)
	for i := range out {
		out[i] = byte(value >> (8 * i))
	}
	return out
}
