package dyld

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/wnxd/dyldsym/loader"
)

type Options struct {
	Logger  log.Logger
	ABIs    []ABI
	Metrics *Metrics
}

// Bootstrap resolves the dyld accessors once per loader. Every caller,
// including those racing the first one, sees the same result.
type Bootstrap struct {
	loader  loader.Loader
	logger  log.Logger
	abis    []ABI
	metrics *Metrics

	once sync.Once
	runs atomic.Int32
	acc  *Accessors
	err  error
}

func NewBootstrap(l loader.Loader, options Options) *Bootstrap {
	b := &Bootstrap{
		loader:  l,
		logger:  options.Logger,
		abis:    options.ABIs,
		metrics: options.Metrics,
	}
	if b.logger == nil {
		b.logger = log.NewNopLogger()
	}
	if len(b.abis) == 0 {
		b.abis = DefaultABIs
	}
	return b
}

// Accessors returns the resolved accessors. It panics if they cannot be
// found: nothing else in the package works without them.
func (b *Bootstrap) Accessors() *Accessors {
	b.once.Do(b.inspect)
	if b.err != nil {
		panic(b.err)
	}
	return b.acc
}

// Runs reports how many times discovery has executed.
func (b *Bootstrap) Runs() int {
	return int(b.runs.Load())
}

func (b *Bootstrap) inspect() {
	b.runs.Add(1)
	if b.metrics != nil {
		b.metrics.Bootstraps.Inc()
	}
	acc, err := Inspect(b.loader, b.abis)
	if err != nil {
		if b.metrics != nil {
			b.metrics.BootstrapFailures.Inc()
		}
		level.Error(b.logger).Log("msg", "dyld bootstrap failed", "err", err)
		b.err = err
		return
	}
	level.Debug(b.logger).Log(
		"msg", "dyld accessors resolved",
		"abi", acc.ABI.Name,
		"dyld", fmt.Sprintf("%#x", acc.DyldHeader),
		"slide", fmt.Sprintf("%#x", acc.DyldSlide),
	)
	b.acc = acc
}
