//go:build !darwin

package image

import (
	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/loader"
)

func newNativeLoader() (loader.Loader, error) {
	return nil, errors.WithStack(ErrUnsupportedPlatform)
}
