package macho

import (
	gomacho "debug/macho"
	"io"

	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/memory"
)

// Map loads the segments of a Mach-O file into a new address space at their
// link-time addresses and returns the space and the header address. Fat files
// are narrowed to the slice for arch; ARCH_UNKNOWN takes the first slice.
func Map(r io.ReaderAt, arch memory.Arch) (*memory.Space, uint64, error) {
	f, err := openFile(r, arch)
	if err != nil {
		return nil, 0, err
	}
	space := memory.NewSpace(ArchOf(f.Cpu))
	var (
		header uint64
		found  bool
	)
	for _, l := range f.Loads {
		seg, ok := l.(*gomacho.Segment)
		if !ok || seg.Filesz == 0 {
			continue
		}
		size := max(seg.Memsz, seg.Filesz)
		if err = space.Map(seg.Addr, size); err != nil {
			return nil, 0, errors.Wrapf(err, "map segment %s", seg.Name)
		}
		data, err := seg.Data()
		if err != nil {
			return nil, 0, errors.Wrapf(err, "read segment %s", seg.Name)
		}
		if err = space.MemWrite(seg.Addr, data); err != nil {
			return nil, 0, errors.Wrapf(err, "write segment %s", seg.Name)
		}
		if seg.Offset == 0 && !found {
			header, found = seg.Addr, true
		}
	}
	if !found {
		return nil, 0, errors.WithStack(ErrSlideNotFound)
	}
	return space, header, nil
}

func openFile(r io.ReaderAt, arch memory.Arch) (*gomacho.File, error) {
	fat, err := gomacho.NewFatFile(r)
	if errors.Is(err, gomacho.ErrNotFat) {
		f, err := gomacho.NewFile(r)
		if err != nil {
			return nil, errors.Wrap(ErrBadMagic, err.Error())
		}
		if arch != memory.ARCH_UNKNOWN && ArchOf(f.Cpu) != arch {
			return nil, errors.Wrapf(memory.ErrArchUnsupported, "file is %s, want %s", ArchOf(f.Cpu), arch)
		}
		return f, nil
	} else if err != nil {
		return nil, errors.Wrap(ErrBadMagic, err.Error())
	}
	for _, a := range fat.Arches {
		if arch == memory.ARCH_UNKNOWN || ArchOf(a.Cpu) == arch {
			return a.File, nil
		}
	}
	return nil, errors.Wrapf(memory.ErrArchUnsupported, "no %s slice in fat file", arch)
}
