package image

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wnxd/dyldsym/loader"
)

var (
	ErrImageNotFound       = fmt.Errorf("image not found: %w", loader.ErrNotLoaded)
	ErrSymbolNotFound      = errors.New("symbol not found")
	ErrClosed              = errors.New("image closed")
	ErrUnsupportedPlatform = errors.New("platform unsupported")
)
