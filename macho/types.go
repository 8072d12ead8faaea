package macho

import (
	gomacho "debug/macho"

	"github.com/wnxd/dyldsym/memory"
)

// The structs below describe both the 32-bit and the 64-bit layouts. Fields
// of type uintptr are encoded with the word size of the image.

type Header struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
}

type LoadCommand struct {
	Cmd     uint32
	CmdSize uint32
}

type SegmentCommand struct {
	Cmd      uint32
	CmdSize  uint32
	SegName  [16]byte
	VMAddr   uintptr
	VMSize   uintptr
	FileOff  uintptr
	FileSize uintptr
	MaxProt  int32
	InitProt int32
	NSects   uint32
	Flags    uint32
}

type SymtabCommand struct {
	Cmd     uint32
	CmdSize uint32
	SymOff  uint32
	NSyms   uint32
	StrOff  uint32
	StrSize uint32
}

type Nlist struct {
	Strx  uint32
	Type  uint8
	Sect  uint8
	Desc  uint16
	Value uintptr
}

var cpuArch = map[gomacho.Cpu]memory.Arch{
	gomacho.Cpu386:   memory.ARCH_X86,
	gomacho.CpuAmd64: memory.ARCH_X86_64,
	gomacho.CpuArm:   memory.ARCH_ARM,
	gomacho.CpuArm64: memory.ARCH_ARM64,
}

func ArchOf(cpu gomacho.Cpu) memory.Arch {
	return cpuArch[cpu]
}

func CPUOf(arch memory.Arch) gomacho.Cpu {
	for cpu, a := range cpuArch {
		if a == arch {
			return cpu
		}
	}
	return 0
}

func (h *Header) Arch() memory.Arch {
	return ArchOf(gomacho.Cpu(h.CPUType))
}

func (s *SegmentCommand) Name() string {
	for i, c := range s.SegName {
		if c == 0 {
			return string(s.SegName[:i])
		}
	}
	return string(s.SegName[:])
}

// covers reports whether file offset off lies in the part of the file the
// segment maps.
func (s *SegmentCommand) covers(off uint64) bool {
	return off >= uint64(s.FileOff) && off-uint64(s.FileOff) < uint64(s.FileSize)
}

func (s *SegmentCommand) fits(off, size uint64) bool {
	end := off + size
	return end >= off && end <= uint64(s.FileOff)+uint64(s.FileSize)
}

// translate maps a file offset inside the segment to its nominal address.
func (s *SegmentCommand) translate(off uint64) uint64 {
	return uint64(s.VMAddr) + off - uint64(s.FileOff)
}
