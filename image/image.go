package image

import (
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/loader"
	"github.com/wnxd/dyldsym/macho"
	"github.com/wnxd/dyldsym/memory"
)

// Image is an open reference to a loaded Mach-O image. Symbols found through
// it stay valid until Close.
type Image struct {
	name    string
	loader  loader.Loader
	handle  loader.Handle
	header  uint64
	slide   int64
	arch    memory.Arch
	logger  log.Logger
	metrics *Metrics

	closed atomic.Bool
	table  func() (*macho.SymbolTable, error)
	cache  *lru.Cache[string, *macho.Symbol]
}

func newImage(r *Resolver, name string, h loader.Handle, header uint64, slide int64, arch memory.Arch) (*Image, error) {
	im := &Image{
		name:    name,
		loader:  r.loader,
		handle:  h,
		header:  header,
		slide:   slide,
		arch:    arch,
		logger:  log.With(r.logger, "image", name),
		metrics: r.options.Metrics,
	}
	im.table = sync.OnceValues(func() (*macho.SymbolTable, error) {
		return macho.Open(im.loader.Memory(), im.header, im.slide)
	})
	if r.options.CacheSize > 0 {
		cache, err := lru.New[string, *macho.Symbol](r.options.CacheSize)
		if err != nil {
			return nil, err
		}
		im.cache = cache
	}
	return im, nil
}

func (im *Image) Name() string {
	return im.name
}

func (im *Image) Handle() loader.Handle {
	return im.handle
}

func (im *Image) Header() uint64 {
	return im.header
}

func (im *Image) Slide() int64 {
	return im.slide
}

func (im *Image) Arch() memory.Arch {
	return im.arch
}

// Close releases the image. Release failures are only logged, and closing
// twice is a no-op.
func (im *Image) Close() error {
	if !im.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := im.loader.Close(im.handle); err != nil {
		level.Debug(im.logger).Log("msg", "release image failed", "err", err)
	}
	if im.cache != nil {
		im.cache.Purge()
	}
	return nil
}

// FindPrivateSymbols looks names up in the image's symbol table, private
// entries included. The result has one slot per name, nil where absent.
func (im *Image) FindPrivateSymbols(names []string) ([]*macho.Symbol, error) {
	if im.closed.Load() {
		return nil, errors.Wrap(ErrClosed, im.name)
	}
	syms := make([]*macho.Symbol, len(names))
	var (
		missing []string
		slots   []int
	)
	for i, name := range names {
		if im.cache != nil {
			if sym, ok := im.cache.Get(name); ok {
				syms[i] = sym
				im.looked("cached")
				continue
			}
		}
		missing = append(missing, name)
		slots = append(slots, i)
	}
	if len(missing) == 0 {
		return syms, nil
	}
	st, err := im.table()
	if err != nil {
		return nil, errors.Wrap(err, im.name)
	}
	found, err := st.Find(missing)
	if err != nil {
		return nil, errors.Wrap(err, im.name)
	}
	for k, sym := range found {
		syms[slots[k]] = sym
		if sym == nil {
			im.looked("missing")
			continue
		}
		im.looked("found")
		if im.cache != nil {
			im.cache.Add(missing[k], sym)
		}
	}
	return syms, nil
}

// SymbolAddress converts sym to the address it is mapped at in this image.
func (im *Image) SymbolAddress(sym *macho.Symbol) uint64 {
	return macho.Address(sym, im.slide, im.arch)
}

func (im *Image) FindSymbol(name string) (uint64, error) {
	syms, err := im.FindPrivateSymbols([]string{name})
	if err != nil {
		return 0, err
	}
	if syms[0] == nil {
		return 0, errors.Wrapf(ErrSymbolNotFound, "%s in %s", name, im.name)
	}
	return im.SymbolAddress(syms[0]), nil
}

func (im *Image) looked(result string) {
	if im.metrics != nil {
		im.metrics.Lookups.WithLabelValues(result).Inc()
	}
}
