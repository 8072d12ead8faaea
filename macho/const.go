package macho

import (
	gomacho "debug/macho"
)

const (
	MH_MAGIC    = uint32(gomacho.Magic32)
	MH_MAGIC_64 = uint32(gomacho.Magic64)

	MH_DYLIB     = uint32(gomacho.TypeDylib)
	MH_DYLINKER  = uint32(0x7)
	MH_EXECUTE   = uint32(gomacho.TypeExec)
	LC_SEGMENT   = uint32(gomacho.LoadCmdSegment)
	LC_SYMTAB    = uint32(gomacho.LoadCmdSymtab)
	LC_SEGMENT64 = uint32(gomacho.LoadCmdSegment64)

	// N_ARM_THUMB_DEF marks a symbol defined in Thumb code.
	N_ARM_THUMB_DEF = 0x0008
)
