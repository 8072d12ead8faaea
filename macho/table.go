package macho

import (
	"bytes"
	"iter"

	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/encoding"
	"github.com/wnxd/dyldsym/memory"
)

// SymbolTable is the located LC_SYMTAB of an image mapped in memory.
type SymbolTable struct {
	layout *Layout
	arch   memory.Arch
	slide  int64
	symoff uint64
	nsyms  uint32
	symtab []byte
	strtab []byte
}

// Open locates the symbol table of the image whose header is at addr, using
// slide as its load bias.
func Open(mem memory.Memory, addr uint64, slide int64) (*SymbolTable, error) {
	return open(mem, addr, slide, false)
}

// OpenSelf is like Open but derives the slide from the segment that maps file
// offset zero.
func OpenSelf(mem memory.Memory, addr uint64) (*SymbolTable, error) {
	return open(mem, addr, 0, true)
}

// FindSymbols opens the table at addr and looks up names in one pass.
func FindSymbols(mem memory.Memory, addr uint64, slide int64, names []string) ([]*Symbol, error) {
	st, err := Open(mem, addr, slide)
	if err != nil {
		return nil, err
	}
	return st.Find(names)
}

func open(mem memory.Memory, addr uint64, slide int64, self bool) (*SymbolTable, error) {
	im, err := readImage(mem, addr)
	if err != nil {
		return nil, err
	}
	cmd, err := im.symtab()
	if err != nil {
		return nil, err
	}
	var (
		symSize            uint64
		symAddr, strAddr   uint64
		symFound, strFound bool
		slideFound         = !self
		nlistSize          = im.layout.NlistSize()
	)
	if cmd != nil {
		symSize = uint64(cmd.NSyms) * nlistSize
	}
	err = im.segments(func(seg *SegmentCommand) (bool, error) {
		if !slideFound && seg.FileOff == 0 && seg.FileSize > 0 {
			slide = int64(addr - uint64(seg.VMAddr))
			slideFound = true
		}
		if cmd != nil {
			if !symFound && seg.covers(uint64(cmd.SymOff)) {
				if !seg.fits(uint64(cmd.SymOff), symSize) {
					return false, errors.Wrapf(ErrMalformed, "symbol table overruns segment %s", seg.Name())
				}
				symAddr, symFound = seg.translate(uint64(cmd.SymOff)), true
			}
			if !strFound && seg.covers(uint64(cmd.StrOff)) {
				if !seg.fits(uint64(cmd.StrOff), uint64(cmd.StrSize)) {
					return false, errors.Wrapf(ErrMalformed, "string table overruns segment %s", seg.Name())
				}
				strAddr, strFound = seg.translate(uint64(cmd.StrOff)), true
			}
		}
		return slideFound && (cmd == nil || symFound && strFound), nil
	})
	if err != nil {
		return nil, err
	}
	if !slideFound {
		return nil, errors.Wrapf(ErrSlideNotFound, "image at %#x", addr)
	}
	st := &SymbolTable{
		layout: im.layout,
		arch:   im.header.Arch(),
		slide:  slide,
	}
	if cmd == nil || !symFound || !strFound || cmd.NSyms == 0 {
		return st, nil
	}
	st.symoff = symAddr + uint64(slide)
	st.nsyms = cmd.NSyms
	if st.symtab, err = mem.MemRead(st.symoff, symSize); err != nil {
		return nil, errors.Wrapf(err, "read symbol table at %#x", st.symoff)
	}
	strAddr += uint64(slide)
	if st.strtab, err = mem.MemRead(strAddr, uint64(cmd.StrSize)); err != nil {
		return nil, errors.Wrapf(err, "read string table at %#x", strAddr)
	}
	return st, nil
}

func (st *SymbolTable) Slide() int64 {
	return st.slide
}

func (st *SymbolTable) Arch() memory.Arch {
	return st.arch
}

func (st *SymbolTable) Len() int {
	return int(st.nsyms)
}

// Address resolves sym with this table's slide and architecture.
func (st *SymbolTable) Address(sym *Symbol) uint64 {
	return Address(sym, st.slide, st.arch)
}

func (st *SymbolTable) name(strx uint32) ([]byte, error) {
	if strx == 0 {
		return nil, nil
	}
	if uint64(strx) >= uint64(len(st.strtab)) {
		return nil, errors.Wrapf(ErrMalformed, "strx %d outside string table of %d bytes", strx, len(st.strtab))
	}
	s := st.strtab[strx:]
	i := bytes.IndexByte(s, 0)
	if i == -1 {
		return nil, errors.Wrapf(ErrMalformed, "name at strx %d is not terminated", strx)
	}
	return s[:i], nil
}

func (st *SymbolTable) entries(fn func(i uint32, nl *Nlist, name []byte) bool) error {
	stream := encoding.NewBuffer(st.layout.PointerSize, st.symtab)
	for i := uint32(0); i < st.nsyms; i++ {
		var nl Nlist
		if err := encoding.Decode(stream, &nl); err != nil {
			return errors.Wrapf(err, "decode symbol %d", i)
		}
		name, err := st.name(nl.Strx)
		if err != nil {
			return errors.Wrapf(err, "symbol %d", i)
		}
		if !fn(i, &nl, name) {
			return nil
		}
	}
	return nil
}

func (st *SymbolTable) symbol(i uint32, nl *Nlist, name []byte) *Symbol {
	return &Symbol{
		Name:  string(name),
		Addr:  st.symoff + uint64(i)*st.layout.NlistSize(),
		Strx:  nl.Strx,
		Type:  nl.Type,
		Sect:  nl.Sect,
		Desc:  nl.Desc,
		Value: uint64(nl.Value),
	}
}

// All iterates over every entry in table order.
func (st *SymbolTable) All() iter.Seq2[*Symbol, error] {
	return func(yield func(*Symbol, error) bool) {
		stopped := false
		err := st.entries(func(i uint32, nl *Nlist, name []byte) bool {
			stopped = !yield(st.symbol(i, nl, name), nil)
			return !stopped
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// Find returns, for each name, the first entry carrying exactly that name or
// nil. Repeated names share the same entry.
func (st *SymbolTable) Find(names []string) ([]*Symbol, error) {
	syms := make([]*Symbol, len(names))
	pending := make(map[string][]int, len(names))
	for i, name := range names {
		pending[name] = append(pending[name], i)
	}
	if len(pending) == 0 {
		return syms, nil
	}
	err := st.entries(func(i uint32, nl *Nlist, name []byte) bool {
		slots, ok := pending[string(name)]
		if !ok {
			return true
		}
		sym := st.symbol(i, nl, name)
		for _, j := range slots {
			syms[j] = sym
		}
		delete(pending, string(name))
		return len(pending) > 0
	})
	if err != nil {
		return nil, err
	}
	return syms, nil
}
