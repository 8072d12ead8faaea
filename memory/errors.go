package memory

import "github.com/pkg/errors"

var (
	ErrArchUnsupported = errors.New("architecture unsupported")
	ErrOutOfRange      = errors.New("address out of range")
	ErrOverlap         = errors.New("region overlaps existing mapping")
	ErrReadOnly        = errors.New("memory is read-only")
)
