package emu

import "fmt"

// StackUnderflowError reports a RET executed with an empty call stack.
// It is a fatal machine fault.
type StackUnderflowError struct {
	PC uint32
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow: RET at PC 0x%08x with empty call stack", e.PC)
}

// CallStack manages the dedicated return-address region in main memory.
// CALL pushes the return address, RET pops it. The stack grows downward
// from base+size.
type CallStack struct {
	mem  *Memory
	base uint32
	size uint32
	sp   uint32
}

// NewCallStack creates a call stack over the region [base, base+size).
func NewCallStack(mem *Memory, base, size uint32) *CallStack {
	return &CallStack{mem: mem, base: base, size: size, sp: base + size}
}

// Push stores a return address. Overflowing the region is reported as an
// out-of-bounds access at the push address.
func (s *CallStack) Push(retAddr uint32) error {
	if s.sp < s.base+4 {
		return &OutOfBoundsError{Addr: s.sp - 4, Width: 4, Size: s.mem.Size()}
	}
	s.sp -= 4
	if err := s.mem.Write(s.sp, 4, retAddr); err != nil {
		s.sp += 4
		return err
	}
	return nil
}

// Pop returns the most recently pushed return address. pc is the RET's
// address, attached to the underflow fault.
func (s *CallStack) Pop(pc uint32) (uint32, error) {
	if s.sp >= s.base+s.size {
		return 0, &StackUnderflowError{PC: pc}
	}
	ret, err := s.mem.Read(s.sp, 4)
	if err != nil {
		return 0, err
	}
	s.sp += 4
	return ret, nil
}

// Depth returns the number of return addresses currently on the stack.
func (s *CallStack) Depth() int {
	return int((s.base + s.size - s.sp) / 4)
}

// Reset empties the stack.
func (s *CallStack) Reset() {
	s.sp = s.base + s.size
}
