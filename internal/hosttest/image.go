package hosttest

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/encoding"
	"github.com/wnxd/dyldsym/macho"
	"github.com/wnxd/dyldsym/memory"
)

const (
	PageSize = 0x1000
	// LinkeditGap separates __TEXT from __LINKEDIT in memory but not in the
	// file, so file offsets and addresses differ for the tables.
	LinkeditGap = 0x1000
	// SymOff is the file offset of the first nlist entry.
	SymOff = PageSize
)

type Symbol struct {
	Name  string
	Value uint64
	Type  uint8
	Sect  uint8
	Desc  uint16
}

// Image describes a synthetic Mach-O image: a header page mapped by __TEXT
// and a __LINKEDIT segment holding the symbol and string tables.
type Image struct {
	Name     string
	Arch     memory.Arch
	FileType uint32
	VMAddr   uint64
	Slide    int64
	Symbols  []Symbol
	NoSymtab bool
	// Patch, when set, edits the encoded file before it is mapped.
	Patch func(file []byte)
}

type segment struct {
	name            string
	vmaddr, vmsize  uint64
	fileoff, filesz uint64
}

func (img *Image) layout() *macho.Layout {
	return macho.LayoutFor(img.Arch.PointerSize())
}

func (img *Image) Header() uint64 {
	return uint64(int64(img.VMAddr) + img.Slide)
}

// Address returns where a symbol of this image is expected to resolve.
func (img *Image) Address(name string) (uint64, bool) {
	for _, sym := range img.Symbols {
		if sym.Name == name {
			addr := uint64(int64(sym.Value) + img.Slide)
			if img.Arch == memory.ARCH_ARM && sym.Desc&macho.N_ARM_THUMB_DEF != 0 {
				addr |= 1
			}
			return addr, true
		}
	}
	return 0, false
}

func (img *Image) strtab() ([]byte, []uint32) {
	strtab := []byte{0}
	strx := make([]uint32, len(img.Symbols))
	for i, sym := range img.Symbols {
		if sym.Name == "" {
			continue
		}
		strx[i] = uint32(len(strtab))
		strtab = append(strtab, sym.Name...)
		strtab = append(strtab, 0)
	}
	return strtab, strx
}

func (img *Image) build() ([]byte, []segment, error) {
	layout := img.layout()
	if img.Arch.PointerSize() == 0 {
		return nil, nil, errors.Wrap(memory.ErrArchUnsupported, img.Arch.String())
	}
	bs := layout.PointerSize
	strtab, strx := img.strtab()
	symSize := uint64(len(img.Symbols)) * layout.NlistSize()
	linkedit := segment{
		name:    "__LINKEDIT",
		vmaddr:  img.VMAddr + PageSize + LinkeditGap,
		fileoff: SymOff,
		filesz:  symSize + uint64(len(strtab)),
	}
	linkedit.vmsize = memory.Align(linkedit.filesz, PageSize)
	segs := []segment{
		{name: "__TEXT", vmaddr: img.VMAddr, vmsize: PageSize, filesz: PageSize},
		linkedit,
	}
	ncmds := uint32(len(segs))
	sizeofcmds := uint32(len(segs)) * uint32(layout.SegmentSize())
	if !img.NoSymtab {
		ncmds++
		sizeofcmds += uint32(layout.SymtabSize())
	}
	fileType := img.FileType
	if fileType == 0 {
		fileType = macho.MH_DYLIB
	}

	buf := encoding.NewBuffer(bs, nil)
	err := encoding.Encode(buf, &macho.Header{
		Magic:      layout.Magic,
		CPUType:    uint32(macho.CPUOf(img.Arch)),
		FileType:   fileType,
		NCmds:      ncmds,
		SizeOfCmds: sizeofcmds,
	})
	if err != nil {
		return nil, nil, err
	}
	buf.Seek(int(layout.HeaderSize))
	for _, seg := range segs {
		cmd := macho.SegmentCommand{
			Cmd:      layout.SegmentCmd,
			CmdSize:  uint32(layout.SegmentSize()),
			VMAddr:   uintptr(seg.vmaddr),
			VMSize:   uintptr(seg.vmsize),
			FileOff:  uintptr(seg.fileoff),
			FileSize: uintptr(seg.filesz),
			MaxProt:  1,
			InitProt: 1,
		}
		copy(cmd.SegName[:], seg.name)
		if err = encoding.Encode(buf, &cmd); err != nil {
			return nil, nil, err
		}
	}
	if !img.NoSymtab {
		err = encoding.Encode(buf, &macho.SymtabCommand{
			Cmd:     macho.LC_SYMTAB,
			CmdSize: uint32(layout.SymtabSize()),
			SymOff:  SymOff,
			NSyms:   uint32(len(img.Symbols)),
			StrOff:  uint32(SymOff + symSize),
			StrSize: uint32(len(strtab)),
		})
		if err != nil {
			return nil, nil, err
		}
	}
	buf.Seek(SymOff)
	for i, sym := range img.Symbols {
		err = encoding.Encode(buf, &macho.Nlist{
			Strx:  strx[i],
			Type:  sym.Type,
			Sect:  sym.Sect,
			Desc:  sym.Desc,
			Value: uintptr(sym.Value),
		})
		if err != nil {
			return nil, nil, err
		}
	}
	buf.Write(strtab)
	file := buf.Bytes()
	if img.Patch != nil {
		img.Patch(file)
	}
	return file, segs, nil
}

// File encodes the image as it would be stored on disk.
func (img *Image) File() ([]byte, error) {
	file, _, err := img.build()
	return file, err
}

// MapInto maps the image's segments into space at their slid addresses and
// returns the base of every mapped region.
func (img *Image) MapInto(space *memory.Space) ([]uint64, error) {
	file, segs, err := img.build()
	if err != nil {
		return nil, err
	}
	bases := make([]uint64, 0, len(segs))
	for _, seg := range segs {
		addr := uint64(int64(seg.vmaddr) + img.Slide)
		if err = space.Map(addr, seg.vmsize); err != nil {
			return nil, errors.Wrapf(err, "map %s of %s", seg.name, img.Name)
		}
		end := min(seg.fileoff+seg.filesz, uint64(len(file)))
		if err = space.MemWrite(addr, file[seg.fileoff:end]); err != nil {
			return nil, err
		}
		bases = append(bases, addr)
	}
	return bases, nil
}
