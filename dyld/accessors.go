package dyld

import (
	"github.com/wnxd/dyldsym/loader"
)

// Accessors calls the private dyld routines that report where an image is
// mapped.
type Accessors struct {
	ABI        ABI
	DyldHeader uint64
	DyldSlide  int64

	loader     loader.Loader
	slide      uint64
	machHeader uint64
}

func (a *Accessors) Routines() (slide, machHeader uint64) {
	return a.slide, a.machHeader
}

func (a *Accessors) MachHeader(h loader.Handle) (uint64, error) {
	return a.loader.Call(a.machHeader, h)
}

func (a *Accessors) Slide(h loader.Handle) (int64, error) {
	slide, err := a.loader.Call(a.slide, h)
	return int64(slide), err
}
