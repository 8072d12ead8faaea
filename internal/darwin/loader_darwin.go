package darwin

import (
	"github.com/ebitengine/purego"
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/loader"
	"github.com/wnxd/dyldsym/memory"
)

// RTLD_NOLOAD makes dlopen fail instead of loading an image that is not
// already resident.
const RTLD_NOLOAD = 0x10

// Loader drives the dyld of the current process.
type Loader struct {
	mem              processMemory
	getAllImageInfos uintptr
}

func New() (*Loader, error) {
	fn, err := purego.Dlsym(purego.RTLD_DEFAULT, "_dyld_get_all_image_infos")
	if err != nil {
		return nil, errors.Wrap(err, "resolve _dyld_get_all_image_infos")
	}
	return &Loader{
		mem:              processMemory{memory.HostArch()},
		getAllImageInfos: fn,
	}, nil
}

func (l *Loader) Memory() memory.Memory {
	return l.mem
}

func (l *Loader) AllImageInfos() (uint64, error) {
	r1, _, _ := purego.SyscallN(l.getAllImageInfos)
	if r1 == 0 {
		return 0, errors.New("_dyld_get_all_image_infos returned NULL")
	}
	return uint64(r1), nil
}

func (l *Loader) Open(name string) (loader.Handle, error) {
	h, err := purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_LOCAL|RTLD_NOLOAD)
	if err != nil {
		return 0, errors.Wrap(loader.ErrNotLoaded, err.Error())
	}
	return loader.Handle(h), nil
}

func (l *Loader) Close(h loader.Handle) error {
	return purego.Dlclose(uintptr(h))
}

func (l *Loader) Call(fn uint64, h loader.Handle) (uint64, error) {
	if fn == 0 {
		return 0, errors.WithStack(loader.ErrBadRoutine)
	}
	r1, _, _ := purego.SyscallN(uintptr(fn), uintptr(h))
	return uint64(r1), nil
}
