package image

import (
	"sync"

	"github.com/wnxd/dyldsym/macho"
)

var defaultResolver = sync.OnceValues(func() (*Resolver, error) {
	l, err := newNativeLoader()
	if err != nil {
		return nil, err
	}
	return NewResolver(l, DefaultOptions()), nil
})

// Open opens name in the current process.
func Open(name string) (*Image, error) {
	r, err := defaultResolver()
	if err != nil {
		return nil, err
	}
	return r.Open(name)
}

func Close(im *Image) error {
	return im.Close()
}

func FindPrivateSymbols(im *Image, names []string) ([]*macho.Symbol, error) {
	return im.FindPrivateSymbols(names)
}

func SymbolAddress(im *Image, sym *macho.Symbol) uint64 {
	return im.SymbolAddress(sym)
}
