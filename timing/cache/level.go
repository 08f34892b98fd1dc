package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// level is one direct-mapped cache level. Tags and valid bits live in an
// Akita directory configured with one way per set, so the set index is the
// line index and eviction is deterministic.
type level struct {
	config   LevelConfig
	numLines int

	directory *akitacache.DirectoryImpl

	// Line data, indexed by set ID (associativity is 1).
	lines [][]byte
}

func newLevel(config LevelConfig) *level {
	numLines := config.CapacityBytes / config.LineSizeBytes

	lines := make([][]byte, numLines)
	for i := range lines {
		lines[i] = make([]byte, config.LineSizeBytes)
	}

	return &level{
		config:   config,
		numLines: numLines,
		directory: akitacache.NewDirectory(
			numLines,
			1,
			config.LineSizeBytes,
			akitacache.NewLRUVictimFinder(),
		),
		lines: lines,
	}
}

// lineAddr returns the line-aligned address containing addr.
func (l *level) lineAddr(addr uint32) uint64 {
	return uint64(addr) / uint64(l.config.LineSizeBytes) * uint64(l.config.LineSizeBytes)
}

// lookup returns the valid block holding addr, or nil on miss.
func (l *level) lookup(addr uint32) *akitacache.Block {
	block := l.directory.Lookup(0, l.lineAddr(addr))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// data returns the line buffer backing a block.
func (l *level) data(block *akitacache.Block) []byte {
	return l.lines[block.SetID]
}

// install fills the line containing addr with data, evicting whatever
// occupies its index. Returns the evicted line address, or ok=false when
// the slot was empty.
func (l *level) install(addr uint32, data []byte) (evictedAddr uint64, evicted bool) {
	lineAddr := l.lineAddr(addr)
	victim := l.directory.FindVictim(lineAddr)

	if victim.IsValid {
		evictedAddr = victim.Tag
		evicted = true
	}

	copy(l.lines[victim.SetID], data)
	victim.Tag = lineAddr
	victim.IsValid = true
	victim.IsDirty = false
	l.directory.Visit(victim)

	return evictedAddr, evicted
}

// reset invalidates every line.
func (l *level) reset() {
	l.directory.Reset()
}
