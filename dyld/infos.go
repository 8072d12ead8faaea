package dyld

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/encoding"
	"github.com/wnxd/dyldsym/memory"
)

// AllImageInfos is the leading part of dyld_all_image_infos, up to the load
// address of dyld itself.
type AllImageInfos struct {
	Version                         uint32
	InfoArrayCount                  uint32
	InfoArray                       uintptr
	Notification                    uintptr
	ProcessDetachedFromSharedRegion bool
	LibSystemInitialized            bool
	DyldImageLoadAddress            uintptr
}

func ReadAllImageInfos(mem memory.Memory, addr uint64) (*AllImageInfos, error) {
	bs := mem.Arch().PointerSize()
	if bs == 0 {
		return nil, errors.Wrap(memory.ErrArchUnsupported, mem.Arch().String())
	}
	infos := new(AllImageInfos)
	if err := encoding.Decode(memory.PointerStream(memory.ToPointer(mem, addr), bs), infos); err != nil {
		return nil, errors.Wrapf(err, "read dyld_all_image_infos at %#x", addr)
	}
	return infos, nil
}

func WriteAllImageInfos(mem memory.Memory, addr uint64, infos *AllImageInfos) error {
	bs := mem.Arch().PointerSize()
	if bs == 0 {
		return errors.Wrap(memory.ErrArchUnsupported, mem.Arch().String())
	}
	return encoding.Encode(memory.PointerStream(memory.ToPointer(mem, addr), bs), infos)
}
