package image

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/dyld"
	"github.com/wnxd/dyldsym/loader"
	"github.com/wnxd/dyldsym/macho"
)

// Resolver opens images of one process through its loader.
type Resolver struct {
	loader    loader.Loader
	bootstrap *dyld.Bootstrap
	options   Options
	logger    log.Logger
}

func NewResolver(l loader.Loader, options Options) *Resolver {
	if options.Logger == nil {
		options.Logger = log.NewNopLogger()
	}
	var dm *dyld.Metrics
	if options.Metrics != nil {
		dm = options.Metrics.Dyld
	}
	return &Resolver{
		loader: l,
		bootstrap: dyld.NewBootstrap(l, dyld.Options{
			Logger:  options.Logger,
			ABIs:    options.ABIs,
			Metrics: dm,
		}),
		options: options,
		logger:  options.Logger,
	}
}

func (r *Resolver) Bootstrap() *dyld.Bootstrap {
	return r.bootstrap
}

// Open returns a handle on an image that is already loaded. It never loads
// name; an image that is not resident yields ErrImageNotFound.
func (r *Resolver) Open(name string) (*Image, error) {
	acc := r.bootstrap.Accessors()
	h, err := r.loader.Open(name)
	if err != nil {
		r.opened("not_found")
		level.Debug(r.logger).Log("msg", "image not resident", "image", name, "err", err)
		if errors.Is(err, loader.ErrNotLoaded) {
			return nil, errors.Wrap(ErrImageNotFound, name)
		}
		return nil, errors.Wrap(err, name)
	}
	im, err := r.newImage(name, h, acc)
	if err != nil {
		r.opened("error")
		if cerr := r.loader.Close(h); cerr != nil {
			level.Debug(r.logger).Log("msg", "release image failed", "image", name, "err", cerr)
		}
		return nil, err
	}
	r.opened("ok")
	level.Debug(r.logger).Log(
		"msg", "image opened",
		"image", name,
		"header", fmt.Sprintf("%#x", im.header),
		"slide", fmt.Sprintf("%#x", im.slide),
	)
	return im, nil
}

func (r *Resolver) newImage(name string, h loader.Handle, acc *dyld.Accessors) (*Image, error) {
	header, err := acc.MachHeader(h)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: mach header", name)
	}
	slide, err := acc.Slide(h)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: slide", name)
	}
	hdr, _, err := macho.ReadHeader(r.loader.Memory(), header)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return newImage(r, name, h, header, slide, hdr.Arch())
}

func (r *Resolver) opened(result string) {
	if r.options.Metrics != nil {
		r.options.Metrics.Opens.WithLabelValues(result).Inc()
	}
}
