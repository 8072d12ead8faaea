package memory

import (
	"slices"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// Space is a sparse address space backed by byte slices. Every access must
// fall entirely inside one mapped region.
type Space struct {
	arch    Arch
	mu      sync.RWMutex
	regions []*region
}

type region struct {
	addr uint64
	data []byte
}

func NewSpace(arch Arch) *Space {
	return &Space{arch: arch}
}

func (s *Space) Arch() Arch {
	return s.arch
}

func (s *Space) Map(addr, size uint64) error {
	if size == 0 || addr+size < addr {
		return errors.Wrapf(ErrOutOfRange, "map %#x+%#x", addr, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if overlaps(r.addr, r.end(), addr, addr+size) {
			return errors.Wrapf(ErrOverlap, "map %#x+%#x", addr, size)
		}
	}
	i, _ := slices.BinarySearchFunc(s.regions, addr, func(r *region, addr uint64) int {
		switch {
		case r.addr < addr:
			return -1
		case r.addr > addr:
			return 1
		}
		return 0
	})
	s.regions = slices.Insert(s.regions, i, &region{addr, make([]byte, size)})
	return nil
}

func (s *Space) Unmap(addr uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.regions, func(r *region) bool { return r.addr == addr })
	if i == -1 {
		return errors.Wrapf(ErrOutOfRange, "unmap %#x", addr)
	}
	s.regions = slices.Delete(s.regions, i, i+1)
	return nil
}

func (s *Space) Regions() []MemRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regions := make([]MemRegion, len(s.regions))
	for i, r := range s.regions {
		regions[i] = MemRegion{Addr: r.addr, Size: uint64(len(r.data))}
	}
	return regions
}

func (s *Space) MemRead(addr, size uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slice(addr, size)
}

func (s *Space) MemReadPtr(addr, size uint64, ptr unsafe.Pointer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.slice(addr, size)
	if err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(ptr), size), b)
	return nil
}

func (s *Space) MemWrite(addr uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.slice(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (s *Space) slice(addr, size uint64) ([]byte, error) {
	for _, r := range s.regions {
		if (MemRegion{r.addr, uint64(len(r.data))}).Contains(addr, size) {
			off := addr - r.addr
			return r.data[off : off+size : off+size], nil
		}
	}
	return nil, errors.Wrapf(ErrOutOfRange, "access %#x+%#x", addr, size)
}

func (r *region) end() uint64 {
	return r.addr + uint64(len(r.data))
}
