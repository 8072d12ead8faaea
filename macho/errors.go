package macho

import "github.com/pkg/errors"

var (
	ErrBadMagic      = errors.New("not a mach-o image")
	ErrMalformed     = errors.New("malformed mach-o image")
	ErrSlideNotFound = errors.New("no segment maps the image header")
)
