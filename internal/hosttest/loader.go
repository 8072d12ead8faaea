package hosttest

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/dyld"
	"github.com/wnxd/dyldsym/loader"
	"github.com/wnxd/dyldsym/memory"
)

// AllImageInfosAddr is where the fake loader keeps dyld_all_image_infos.
const AllImageInfosAddr = 0x10000

type module struct {
	img     *Image
	handle  loader.Handle
	regions []uint64
	refs    int
}

// Loader is an in-memory stand-in for the process loader. Images are
// reference counted like dlopen handles and unmapped when the last reference
// goes away. Routine calls are served by Go funcs.
type Loader struct {
	space *memory.Space
	dyld  *Image

	mu       sync.Mutex
	modules  map[string]*module
	handles  map[loader.Handle]*module
	routines map[uint64]func(loader.Handle) uint64
	next     loader.Handle
	opens    int
	calls    int
}

// NewLoader maps dyldImage as the process loader and serves the
// ImageLoaderMachO routines it exports.
func NewLoader(dyldImage *Image) (*Loader, error) {
	l := &Loader{
		space:    memory.NewSpace(dyldImage.Arch),
		dyld:     dyldImage,
		modules:  make(map[string]*module),
		handles:  make(map[loader.Handle]*module),
		routines: make(map[uint64]func(loader.Handle) uint64),
		next:     0x100,
	}
	if err := l.Load(dyldImage); err != nil {
		return nil, err
	}
	if err := l.space.Map(AllImageInfosAddr, PageSize); err != nil {
		return nil, err
	}
	err := dyld.WriteAllImageInfos(l.space, AllImageInfosAddr, &dyld.AllImageInfos{
		Version:              15,
		DyldImageLoadAddress: uintptr(dyldImage.Header()),
	})
	if err != nil {
		return nil, err
	}
	l.ServeABI(dyld.ImageLoaderMachO)
	return l, nil
}

// ServeABI binds the routines abi names, when the dyld image exports them, to
// implementations backed by this loader.
func (l *Loader) ServeABI(abi dyld.ABI) {
	if addr, ok := l.dyld.Address(abi.Slide); ok {
		l.Serve(addr, func(h loader.Handle) uint64 {
			m := l.module(h)
			if m == nil {
				return 0
			}
			return uint64(m.img.Slide)
		})
	}
	if addr, ok := l.dyld.Address(abi.MachHeader); ok {
		l.Serve(addr, func(h loader.Handle) uint64 {
			m := l.module(h)
			if m == nil {
				return 0
			}
			return m.img.Header()
		})
	}
}

func (l *Loader) Serve(addr uint64, fn func(loader.Handle) uint64) {
	l.mu.Lock()
	l.routines[addr] = fn
	l.mu.Unlock()
}

// Load maps img and holds one reference to it, like an image linked at
// launch.
func (l *Loader) Load(img *Image) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.modules[img.Name]; ok {
		return errors.Errorf("%s already loaded", img.Name)
	}
	regions, err := img.MapInto(l.space)
	if err != nil {
		return err
	}
	m := &module{img: img, handle: l.next, regions: regions, refs: 1}
	l.next += 0x10
	l.modules[img.Name] = m
	l.handles[m.handle] = m
	return nil
}

func (l *Loader) module(h loader.Handle) *module {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handles[h]
}

func (l *Loader) Space() *memory.Space {
	return l.space
}

func (l *Loader) Memory() memory.Memory {
	return l.space
}

func (l *Loader) AllImageInfos() (uint64, error) {
	return AllImageInfosAddr, nil
}

func (l *Loader) Open(name string) (loader.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.modules[name]
	if !ok {
		return 0, errors.Wrap(loader.ErrNotLoaded, name)
	}
	m.refs++
	l.opens++
	return m.handle, nil
}

func (l *Loader) Close(h loader.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.handles[h]
	if !ok {
		return errors.Wrapf(loader.ErrBadHandle, "%#x", h)
	}
	m.refs--
	if m.refs > 0 {
		return nil
	}
	for _, addr := range m.regions {
		l.space.Unmap(addr)
	}
	delete(l.modules, m.img.Name)
	delete(l.handles, h)
	return nil
}

func (l *Loader) Call(fn uint64, h loader.Handle) (uint64, error) {
	l.mu.Lock()
	routine, ok := l.routines[fn]
	_, valid := l.handles[h]
	l.calls++
	l.mu.Unlock()
	if !ok {
		return 0, errors.Wrapf(loader.ErrBadRoutine, "%#x", fn)
	}
	if !valid {
		return 0, errors.Wrapf(loader.ErrBadHandle, "%#x", h)
	}
	return routine(h), nil
}

// Refs returns the reference count of name, or 0 once it is unloaded.
func (l *Loader) Refs(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.modules[name]; ok {
		return m.refs
	}
	return 0
}

func (l *Loader) Resident(name string) bool {
	return l.Refs(name) > 0
}

// Opens counts successful Open calls.
func (l *Loader) Opens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens
}

func (l *Loader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
