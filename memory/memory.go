package memory

import (
	"unsafe"
)

// Memory is a readable address space. Addresses are absolute runtime
// addresses in that space.
type Memory interface {
	Arch() Arch
	// MemRead returns size bytes at addr. The returned slice may alias the
	// underlying memory and must not be modified.
	MemRead(addr, size uint64) ([]byte, error)
	MemReadPtr(addr, size uint64, ptr unsafe.Pointer) error
}

type Writer interface {
	MemWrite(addr uint64, data []byte) error
}
