package macho

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/encoding"
)

// Layout selects between the 32-bit and 64-bit shapes of the same structs.
type Layout struct {
	Magic       uint32
	PointerSize int
	HeaderSize  uint64
	SegmentCmd  uint32
}

var (
	Layout32 = &Layout{Magic: MH_MAGIC, PointerSize: 4, HeaderSize: 28, SegmentCmd: LC_SEGMENT}
	Layout64 = &Layout{Magic: MH_MAGIC_64, PointerSize: 8, HeaderSize: 32, SegmentCmd: LC_SEGMENT64}
)

func LayoutOf(magic uint32) (*Layout, error) {
	switch magic {
	case MH_MAGIC:
		return Layout32, nil
	case MH_MAGIC_64:
		return Layout64, nil
	}
	return nil, errors.Wrapf(ErrBadMagic, "magic %#x", magic)
}

func LayoutFor(pointerSize int) *Layout {
	if pointerSize == 8 {
		return Layout64
	}
	return Layout32
}

func (l *Layout) SegmentSize() uint64 {
	return uint64(encoding.Sizeof(l.PointerSize, (*SegmentCommand)(nil)))
}

func (l *Layout) SymtabSize() uint64 {
	return uint64(encoding.Sizeof(l.PointerSize, (*SymtabCommand)(nil)))
}

func (l *Layout) NlistSize() uint64 {
	return uint64(encoding.Sizeof(l.PointerSize, (*Nlist)(nil)))
}
