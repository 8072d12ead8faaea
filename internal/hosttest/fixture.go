package hosttest

import (
	"github.com/wnxd/dyldsym/dyld"
	"github.com/wnxd/dyldsym/macho"
	"github.com/wnxd/dyldsym/memory"
)

const (
	DyldName   = "/usr/lib/dyld"
	DyldVMAddr = 0x1fe00000
	DyldSlide  = 0x3000000
)

// Dyld builds a loader image exporting the routines of each abi next to some
// unrelated symbols. On ARM the routines are Thumb code.
func Dyld(arch memory.Arch, abis ...dyld.ABI) *Image {
	img := &Image{
		Name:     DyldName,
		Arch:     arch,
		FileType: macho.MH_DYLINKER,
		VMAddr:   DyldVMAddr,
		Slide:    DyldSlide,
		Symbols: []Symbol{
			{Name: "__dyld_start", Value: DyldVMAddr + 0x100, Type: 0x0f, Sect: 1},
			{Name: "_dyld_stub_binder", Value: DyldVMAddr + 0x140, Type: 0x0f, Sect: 1},
		},
	}
	var desc uint16
	if arch == memory.ARCH_ARM {
		desc = macho.N_ARM_THUMB_DEF
	}
	value := uint64(DyldVMAddr + 0x400)
	for _, abi := range abis {
		img.Symbols = append(img.Symbols,
			Symbol{Name: abi.Slide, Value: value, Type: 0x0e, Sect: 1, Desc: desc},
			Symbol{Name: abi.MachHeader, Value: value + 0x20, Type: 0x0e, Sect: 1, Desc: desc},
		)
		value += 0x40
	}
	return img
}

// Library builds a small dylib with exported, private and Thumb symbols.
func Library(name string, arch memory.Arch, vmaddr uint64, slide int64) *Image {
	return &Image{
		Name:   name,
		Arch:   arch,
		VMAddr: vmaddr,
		Slide:  slide,
		Symbols: []Symbol{
			{Name: "_exported", Value: vmaddr + 0x200, Type: 0x0f, Sect: 1},
			{Name: "_private", Value: vmaddr + 0x300, Type: 0x0e, Sect: 1},
			{Name: "_thumb", Value: vmaddr + 0x400, Type: 0x0e, Sect: 1, Desc: macho.N_ARM_THUMB_DEF},
			{Name: "_private", Value: vmaddr + 0x500, Type: 0x0e, Sect: 1},
			{Name: "", Value: 0, Type: 0x64},
		},
	}
}
