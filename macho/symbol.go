package macho

import "github.com/wnxd/dyldsym/memory"

// Symbol is one nlist entry of a loaded image. Addr points at the entry
// itself and stays valid only while the image is loaded.
type Symbol struct {
	Name  string
	Addr  uint64
	Strx  uint32
	Type  uint8
	Sect  uint8
	Desc  uint16
	Value uint64
}

func (s *Symbol) IsThumb() bool {
	return s.Desc&N_ARM_THUMB_DEF != 0
}

// Address turns the symbol's link-time value into a runtime address. Thumb
// definitions on 32-bit ARM get the interworking bit.
func Address(sym *Symbol, slide int64, arch memory.Arch) uint64 {
	addr := sym.Value + uint64(slide)
	if arch == memory.ARCH_ARM && sym.IsThumb() {
		addr |= 1
	}
	return addr
}
