package memory

import (
	"unsafe"
)

type Pointer struct {
	mem  Memory
	addr uint64
}

func ToPointer(mem Memory, addr uint64) Pointer {
	return Pointer{mem, addr}
}

func (p Pointer) IsNil() bool {
	return p.addr == 0
}

func (p Pointer) Address() uint64 {
	return p.addr
}

func (p Pointer) Memory() Memory {
	return p.mem
}

func (p Pointer) Add(offset uint64) Pointer {
	return Pointer{p.mem, p.addr + offset}
}

func (p Pointer) Sub(offset uint64) Pointer {
	return Pointer{p.mem, p.addr - offset}
}

func (p Pointer) MemRead(size uint64) ([]byte, error) {
	return p.mem.MemRead(p.addr, size)
}

func (p Pointer) MemReadPtr(size uint64, ptr unsafe.Pointer) error {
	return p.mem.MemReadPtr(p.addr, size, ptr)
}

func (p Pointer) MemWrite(data []byte) error {
	w, ok := p.mem.(Writer)
	if !ok {
		return ErrReadOnly
	}
	return w.MemWrite(p.addr, data)
}

func (p Pointer) ReadAt(b []byte, off int64) (n int, err error) {
	if len(b) == 0 {
		return 0, nil
	}
	err = p.mem.MemReadPtr(p.addr+uint64(off), uint64(len(b)), unsafe.Pointer(unsafe.SliceData(b)))
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p Pointer) WriteAt(b []byte, off int64) (n int, err error) {
	err = p.Add(uint64(off)).MemWrite(b)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
