package emu

import (
	"encoding/binary"
	"fmt"
)

// OutOfBoundsError reports a memory access that falls outside the machine's
// main memory. It is a fatal machine fault.
type OutOfBoundsError struct {
	Addr  uint32
	Width uint32
	Size  uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf(
		"out-of-bounds access: addr 0x%08x width %d (memory size %d)",
		e.Addr, e.Width, e.Size)
}

// Memory is the flat, byte-addressable main memory. Data accesses are
// little-endian; instruction words are stored big-endian, matching the
// program file format.
type Memory struct {
	data []byte
}

// NewMemory creates a zeroed memory of the given size in bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

func (m *Memory) check(addr, width uint32) error {
	end := uint64(addr) + uint64(width)
	if end > uint64(len(m.data)) {
		return &OutOfBoundsError{Addr: addr, Width: width, Size: m.Size()}
	}
	return nil
}

// Read reads a little-endian value of width 1, 2, or 4 bytes,
// zero-extended to 32 bits.
func (m *Memory) Read(addr, width uint32) (uint32, error) {
	if err := m.check(addr, width); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint32(m.data[addr]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(m.data[addr:])), nil
	case 4:
		return binary.LittleEndian.Uint32(m.data[addr:]), nil
	}
	return 0, fmt.Errorf("unsupported access width %d", width)
}

// Write stores the low width bytes of value little-endian.
func (m *Memory) Write(addr, width, value uint32) error {
	if err := m.check(addr, width); err != nil {
		return err
	}
	switch width {
	case 1:
		m.data[addr] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(m.data[addr:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(m.data[addr:], value)
	default:
		return fmt.Errorf("unsupported access width %d", width)
	}
	return nil
}

// ReadBytes copies n bytes starting at addr.
func (m *Memory) ReadBytes(addr, n uint32) ([]byte, error) {
	if err := m.check(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.data[addr:addr+n])
	return out, nil
}

// WriteBytes stores data starting at addr.
func (m *Memory) WriteBytes(addr uint32, data []byte) error {
	if err := m.check(addr, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[addr:], data)
	return nil
}

// FetchWord reads a big-endian 32-bit instruction word.
func (m *Memory) FetchWord(addr uint32) (uint32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(m.data[addr:]), nil
}

// StoreWord writes a big-endian 32-bit instruction word. Used when loading
// program images.
func (m *Memory) StoreWord(addr, word uint32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(m.data[addr:], word)
	return nil
}

// Reset zeroes the whole memory.
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// SignExtend sign-extends the low width bytes of value to 32 bits.
func SignExtend(value, width uint32) uint32 {
	switch width {
	case 1:
		return uint32(int32(int8(value)))
	case 2:
		return uint32(int32(int16(value)))
	}
	return value
}
