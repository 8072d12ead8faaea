package image

import (
	"github.com/wnxd/dyldsym/internal/darwin"
	"github.com/wnxd/dyldsym/loader"
)

func newNativeLoader() (loader.Loader, error) {
	return darwin.New()
}
