package sim

import (
	"errors"
	"fmt"
)

// ErrStepLimit is returned by Run when the configured step budget runs out before the program halts.
var ErrStepLimit = errors.New("step limit reached")

type IllegalInstructionErr struct {
	Word uint32
}

func (e *IllegalInstructionErr) Error() string {
	return fmt.Sprintf("illegal instruction %08x", e.Word)
}

type MemoryAccessErr struct {
	Addr       uint32
	Size       uint8
	MemorySize uint64
	Write      bool
}

func (e *MemoryAccessErr) Error() string {
	op := "load"
	if e.Write {
		op = "store"
	}
	return fmt.Sprintf("%d-byte %s at %08x exceeds memory of size %d", e.Size, op, e.Addr, e.MemorySize)
}

type UnsupportedSyscallErr struct {
	Service uint32
}

func (e *UnsupportedSyscallErr) Error() string {
	return fmt.Sprintf("unsupported environment call %d", e.Service)
}
