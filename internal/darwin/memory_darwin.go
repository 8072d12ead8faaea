package darwin

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/memory"
)

// processMemory reads the current process's own address space.
type processMemory struct {
	arch memory.Arch
}

func (m processMemory) Arch() memory.Arch {
	return m.arch
}

func (m processMemory) MemRead(addr, size uint64) ([]byte, error) {
	if addr == 0 || addr+size < addr {
		return nil, errors.Wrapf(memory.ErrOutOfRange, "read %#x+%#x", addr, size)
	}
	if size == 0 {
		return nil, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), size), nil
}

func (m processMemory) MemReadPtr(addr, size uint64, ptr unsafe.Pointer) error {
	b, err := m.MemRead(addr, size)
	if err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(ptr), size), b)
	return nil
}
