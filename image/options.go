package image

import (
	"github.com/go-kit/log"

	"github.com/wnxd/dyldsym/dyld"
)

const DefaultCacheSize = 256

type Options struct {
	Logger  log.Logger
	Metrics *Metrics
	// ABIs lists the dyld routine names to try, in order. Empty means
	// dyld.DefaultABIs.
	ABIs []dyld.ABI
	// CacheSize bounds the per-image symbol cache. Zero disables it.
	CacheSize int
}

func DefaultOptions() Options {
	return Options{
		Logger:    log.NewNopLogger(),
		CacheSize: DefaultCacheSize,
	}
}
