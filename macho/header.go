package macho

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/encoding"
	"github.com/wnxd/dyldsym/memory"
)

type image struct {
	ptr    memory.Pointer
	layout *Layout
	header Header
}

// ReadHeader decodes the mach header at addr and selects its layout.
func ReadHeader(mem memory.Memory, addr uint64) (*Header, *Layout, error) {
	im, err := readImage(mem, addr)
	if err != nil {
		return nil, nil, err
	}
	return &im.header, im.layout, nil
}

func readImage(mem memory.Memory, addr uint64) (*image, error) {
	ptr := memory.ToPointer(mem, addr)
	im := &image{ptr: ptr}
	// the header fields are all 32-bit, so the word size does not matter yet
	if err := encoding.Decode(memory.PointerStream(ptr, 4), &im.header); err != nil {
		return nil, errors.Wrapf(err, "read mach header at %#x", addr)
	}
	layout, err := LayoutOf(im.header.Magic)
	if err != nil {
		return nil, errors.Wrapf(err, "image at %#x", addr)
	}
	im.layout = layout
	return im, nil
}

func (im *image) stream(p memory.Pointer) encoding.Stream {
	return memory.PointerStream(p, im.layout.PointerSize)
}

// commands calls fn for each load command until fn returns true or an error.
func (im *image) commands(fn func(p memory.Pointer, lc *LoadCommand) (bool, error)) error {
	p := im.ptr.Add(im.layout.HeaderSize)
	end := p.Address() + uint64(im.header.SizeOfCmds)
	for i := uint32(0); i < im.header.NCmds; i++ {
		if p.Address()+8 > end {
			return errors.Wrapf(ErrMalformed, "load command %d outside sizeofcmds", i)
		}
		var lc LoadCommand
		if err := encoding.Decode(im.stream(p), &lc); err != nil {
			return errors.Wrapf(err, "read load command %d", i)
		}
		if lc.CmdSize < 8 || p.Address()+uint64(lc.CmdSize) > end {
			return errors.Wrapf(ErrMalformed, "load command %d has cmdsize %d", i, lc.CmdSize)
		}
		done, err := fn(p, &lc)
		if err != nil || done {
			return err
		}
		p = p.Add(uint64(lc.CmdSize))
	}
	return nil
}

func (im *image) symtab() (*SymtabCommand, error) {
	var symtab *SymtabCommand
	err := im.commands(func(p memory.Pointer, lc *LoadCommand) (bool, error) {
		if lc.Cmd != LC_SYMTAB {
			return false, nil
		}
		if uint64(lc.CmdSize) < im.layout.SymtabSize() {
			return false, errors.Wrapf(ErrMalformed, "LC_SYMTAB cmdsize %d", lc.CmdSize)
		}
		symtab = new(SymtabCommand)
		if err := encoding.Decode(im.stream(p), symtab); err != nil {
			return false, errors.Wrap(err, "read LC_SYMTAB")
		}
		return true, nil
	})
	return symtab, err
}

func (im *image) segments(fn func(seg *SegmentCommand) (bool, error)) error {
	return im.commands(func(p memory.Pointer, lc *LoadCommand) (bool, error) {
		if lc.Cmd != im.layout.SegmentCmd {
			return false, nil
		}
		if uint64(lc.CmdSize) < im.layout.SegmentSize() {
			return false, errors.Wrapf(ErrMalformed, "segment cmdsize %d", lc.CmdSize)
		}
		var seg SegmentCommand
		if err := encoding.Decode(im.stream(p), &seg); err != nil {
			return false, errors.Wrap(err, "read segment command")
		}
		return fn(&seg)
	})
}
