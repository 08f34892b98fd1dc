// Package loader reads GF32 program images: a flat sequence of big-endian
// 32-bit instruction words, as emitted by the assembler.
package loader

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/gfslab/gfsim/insts"
)

// Program is a loaded GF32 program image.
type Program struct {
	// Words are the instruction words in fetch order.
	Words []uint32
	// Entry is the address of the first instruction.
	Entry uint32
}

// Load parses a program image. The image length must be a multiple of the
// word size.
func Load(data []byte, entry uint32) (*Program, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty program image")
	}
	if len(data)%insts.WordBytes != 0 {
		return nil, fmt.Errorf(
			"program image length %d is not a multiple of %d bytes",
			len(data), insts.WordBytes)
	}

	words := make([]uint32, len(data)/insts.WordBytes)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*insts.WordBytes:])
	}
	return &Program{Words: words, Entry: entry}, nil
}

// LoadFile reads a program image from disk.
func LoadFile(path string, entry uint32) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program image: %w", err)
	}
	return Load(data, entry)
}
