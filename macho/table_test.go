package macho_test

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/dyldsym/internal/hosttest"
	"github.com/wnxd/dyldsym/macho"
	"github.com/wnxd/dyldsym/memory"
)

var arches = []memory.Arch{
	memory.ARCH_ARM,
	memory.ARCH_ARM64,
	memory.ARCH_X86,
	memory.ARCH_X86_64,
}

const (
	libVMAddr = 0x10000000
	libSlide  = 0x4000
)

func mapImage(t *testing.T, img *hosttest.Image) *memory.Space {
	t.Helper()
	space := memory.NewSpace(img.Arch)
	_, err := img.MapInto(space)
	require.NoError(t, err)
	return space
}

func library(arch memory.Arch) *hosttest.Image {
	return hosttest.Library("/usr/lib/libtest.dylib", arch, libVMAddr, libSlide)
}

// symtabCmd returns the file offset of the LC_SYMTAB command in images built
// by hosttest.
func symtabCmd(layout *macho.Layout) uint64 {
	return layout.HeaderSize + 2*layout.SegmentSize()
}

func TestFindSymbols(t *testing.T) {
	for _, arch := range arches {
		t.Run(arch.String(), func(t *testing.T) {
			img := library(arch)
			space := mapImage(t, img)
			layout := macho.LayoutFor(arch.PointerSize())

			syms, err := macho.FindSymbols(space, img.Header(), img.Slide,
				[]string{"_exported", "_private", "_missing", "_private", "_thumb"})
			require.NoError(t, err)
			require.Len(t, syms, 5)

			linkedit := uint64(libVMAddr + hosttest.PageSize + hosttest.LinkeditGap + libSlide)
			require.Equal(t, "_exported", syms[0].Name)
			require.Equal(t, uint64(libVMAddr+0x200), syms[0].Value)
			require.Equal(t, uint8(0x0f), syms[0].Type)
			require.Equal(t, uint8(1), syms[0].Sect)
			require.Equal(t, linkedit, syms[0].Addr)

			require.Equal(t, uint64(libVMAddr+0x300), syms[1].Value)
			require.Equal(t, uint8(0x0e), syms[1].Type)
			require.Equal(t, linkedit+layout.NlistSize(), syms[1].Addr)
			require.Same(t, syms[1], syms[3])

			require.Nil(t, syms[2])
			require.True(t, syms[4].IsThumb())
		})
	}
}

func TestFindEmptyNames(t *testing.T) {
	img := library(memory.ARCH_ARM64)
	space := mapImage(t, img)
	syms, err := macho.FindSymbols(space, img.Header(), img.Slide, nil)
	require.NoError(t, err)
	require.Empty(t, syms)
}

func TestLayoutsAgree(t *testing.T) {
	names := []string{"_thumb", "_exported", "_nope", "_private"}
	var results [][]*macho.Symbol
	for _, arch := range []memory.Arch{memory.ARCH_ARM, memory.ARCH_ARM64} {
		img := library(arch)
		syms, err := macho.FindSymbols(mapImage(t, img), img.Header(), img.Slide, names)
		require.NoError(t, err)
		results = append(results, syms)
	}
	for i := range names {
		a, b := results[0][i], results[1][i]
		if a == nil {
			require.Nil(t, b)
			continue
		}
		require.Equal(t, a.Name, b.Name)
		require.Equal(t, a.Value, b.Value)
		require.Equal(t, a.Desc, b.Desc)
		require.Equal(t, a.Strx, b.Strx)
	}
}

func TestOpenSelf(t *testing.T) {
	for _, slide := range []int64{0, 0x8000, -0x4000} {
		img := library(memory.ARCH_X86_64)
		img.Slide = slide
		st, err := macho.OpenSelf(mapImage(t, img), img.Header())
		require.NoError(t, err)
		require.Equal(t, slide, st.Slide())
		require.Equal(t, memory.ARCH_X86_64, st.Arch())

		syms, err := st.Find([]string{"_exported"})
		require.NoError(t, err)
		require.Equal(t, uint64(int64(libVMAddr+0x200)+slide), st.Address(syms[0]))
	}
}

func TestNoSymtab(t *testing.T) {
	for _, arch := range arches {
		img := library(arch)
		img.NoSymtab = true
		st, err := macho.Open(mapImage(t, img), img.Header(), img.Slide)
		require.NoError(t, err)
		require.Zero(t, st.Len())
		syms, err := st.Find([]string{"_exported", "_private"})
		require.NoError(t, err)
		require.Equal(t, []*macho.Symbol{nil, nil}, syms)
	}
}

func TestTablesOutsideSegments(t *testing.T) {
	img := library(memory.ARCH_ARM64)
	img.Patch = func(file []byte) {
		// symoff
		binary.LittleEndian.PutUint32(file[symtabCmd(macho.Layout64)+8:], 0x100000)
	}
	syms, err := macho.FindSymbols(mapImage(t, img), img.Header(), img.Slide, []string{"_exported"})
	require.NoError(t, err)
	require.Nil(t, syms[0])
}

func TestAll(t *testing.T) {
	img := library(memory.ARCH_X86)
	st, err := macho.Open(mapImage(t, img), img.Header(), img.Slide)
	require.NoError(t, err)

	var names []string
	for sym, err := range st.All() {
		require.NoError(t, err)
		names = append(names, sym.Name)
	}
	require.Equal(t, []string{"_exported", "_private", "_thumb", "_private", ""}, names)

	n := 0
	for range st.All() {
		n++
		break
	}
	require.Equal(t, 1, n)
}

func TestAddress(t *testing.T) {
	thumb := &macho.Symbol{Value: 0x1000, Desc: macho.N_ARM_THUMB_DEF}
	arm := &macho.Symbol{Value: 0x1000}
	tests := []struct {
		name  string
		sym   *macho.Symbol
		slide int64
		arch  memory.Arch
		want  uint64
	}{
		{"thumb arm", thumb, 0x20, memory.ARCH_ARM, 0x1021},
		{"plain arm", arm, 0x20, memory.ARCH_ARM, 0x1020},
		{"thumb arm64", thumb, 0x20, memory.ARCH_ARM64, 0x1020},
		{"thumb x86", thumb, 0, memory.ARCH_X86, 0x1000},
		{"negative slide", arm, -0x800, memory.ARCH_X86_64, 0x800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, macho.Address(tt.sym, tt.slide, tt.arch))
		})
	}
}

func TestThumbFromImage(t *testing.T) {
	for _, arch := range []memory.Arch{memory.ARCH_ARM, memory.ARCH_ARM64} {
		img := library(arch)
		st, err := macho.Open(mapImage(t, img), img.Header(), img.Slide)
		require.NoError(t, err)
		syms, err := st.Find([]string{"_thumb", "_private"})
		require.NoError(t, err)
		want, _ := img.Address("_thumb")
		require.Equal(t, want, st.Address(syms[0]))
		require.Equal(t, uint64(libVMAddr+0x300+libSlide), st.Address(syms[1]))
	}
}

func TestMalformed(t *testing.T) {
	layout := macho.Layout64
	tests := []struct {
		name  string
		patch func(file []byte)
		self  bool
		err   error
	}{
		{
			name:  "bad magic",
			patch: func(file []byte) { binary.LittleEndian.PutUint32(file, 0xcafebabe) },
			err:   macho.ErrBadMagic,
		},
		{
			name:  "sizeofcmds too small",
			patch: func(file []byte) { binary.LittleEndian.PutUint32(file[20:], 16) },
			err:   macho.ErrMalformed,
		},
		{
			name:  "zero cmdsize",
			patch: func(file []byte) { binary.LittleEndian.PutUint32(file[layout.HeaderSize+4:], 0) },
			err:   macho.ErrMalformed,
		},
		{
			name: "strx out of range",
			patch: func(file []byte) {
				binary.LittleEndian.PutUint32(file[hosttest.SymOff:], 0xffff)
			},
			err: macho.ErrMalformed,
		},
		{
			name:  "unterminated name",
			patch: func(file []byte) { file[len(file)-1] = 'x' },
			err:   macho.ErrMalformed,
		},
		{
			name: "symbol table overruns segment",
			patch: func(file []byte) {
				// nsyms
				binary.LittleEndian.PutUint32(file[symtabCmd(layout)+12:], 0x10000)
			},
			err: macho.ErrMalformed,
		},
		{
			name: "no anchor segment",
			patch: func(file []byte) {
				// __TEXT filesize
				binary.LittleEndian.PutUint64(file[layout.HeaderSize+8+16+3*8:], 0)
			},
			self: true,
			err:  macho.ErrSlideNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := library(memory.ARCH_ARM64)
			img.Patch = tt.patch
			space := mapImage(t, img)
			var err error
			if tt.self {
				_, err = macho.OpenSelf(space, img.Header())
			} else {
				_, err = macho.FindSymbols(space, img.Header(), img.Slide, []string{"_missing"})
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestUnmappedHeader(t *testing.T) {
	space := memory.NewSpace(memory.ARCH_ARM64)
	_, err := macho.Open(space, 0x1000, 0)
	require.True(t, errors.Is(err, memory.ErrOutOfRange))
}

func TestLayoutSizes(t *testing.T) {
	require.Equal(t, uint64(12), macho.Layout32.NlistSize())
	require.Equal(t, uint64(16), macho.Layout64.NlistSize())
	require.Equal(t, uint64(56), macho.Layout32.SegmentSize())
	require.Equal(t, uint64(72), macho.Layout64.SegmentSize())
	require.Equal(t, uint64(24), macho.Layout64.SymtabSize())

	_, err := macho.LayoutOf(0xcefaedfe)
	require.True(t, errors.Is(err, macho.ErrBadMagic))
}
