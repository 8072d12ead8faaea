package dyld

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/loader"
	"github.com/wnxd/dyldsym/macho"
)

var ErrAccessorsNotFound = errors.New("dyld accessors not found")

// Inspect finds the loader image through dyld_all_image_infos and resolves
// the routines of the first ABI it exports.
func Inspect(l loader.Loader, abis []ABI) (*Accessors, error) {
	mem := l.Memory()
	addr, err := l.AllImageInfos()
	if err != nil {
		return nil, errors.Wrap(err, "locate dyld_all_image_infos")
	}
	infos, err := ReadAllImageInfos(mem, addr)
	if err != nil {
		return nil, err
	}
	header := uint64(infos.DyldImageLoadAddress)
	st, err := macho.OpenSelf(mem, header)
	if err != nil {
		return nil, errors.Wrapf(err, "dyld image at %#x", header)
	}
	names := make([]string, 0, len(abis)*2)
	for _, abi := range abis {
		names = append(names, abi.Slide, abi.MachHeader)
	}
	syms, err := st.Find(names)
	if err != nil {
		return nil, errors.Wrapf(err, "dyld image at %#x", header)
	}
	for i, abi := range abis {
		slide, machHeader := syms[i*2], syms[i*2+1]
		if slide == nil || machHeader == nil {
			continue
		}
		return &Accessors{
			ABI:        abi,
			DyldHeader: header,
			DyldSlide:  st.Slide(),
			loader:     l,
			slide:      st.Address(slide),
			machHeader: st.Address(machHeader),
		}, nil
	}
	return nil, errors.Wrapf(ErrAccessorsNotFound, "dyld image at %#x", header)
}
