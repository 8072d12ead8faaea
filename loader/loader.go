package loader

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/memory"
)

// Handle is an opaque reference to a loaded image. Holding it keeps the image
// resident.
type Handle uintptr

var (
	ErrNotLoaded  = errors.New("image not loaded")
	ErrBadHandle  = errors.New("bad image handle")
	ErrBadRoutine = errors.New("bad routine address")
)

type Loader interface {
	// Memory gives read access to the address space images are mapped in.
	Memory() memory.Memory
	// AllImageInfos returns the address of the process-wide
	// dyld_all_image_infos descriptor.
	AllImageInfos() (uint64, error)
	// Open takes a new reference to an image that is already resident. It
	// never loads: a name that is not resident yields ErrNotLoaded.
	Open(name string) (Handle, error)
	Close(h Handle) error
	// Call invokes the routine at fn with h as its only argument.
	Call(fn uint64, h Handle) (uint64, error)
}
