//go:build !darwin

package image_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/dyldsym/image"
)

func TestDefaultUnsupported(t *testing.T) {
	_, err := image.Open("/usr/lib/libSystem.B.dylib")
	require.True(t, errors.Is(err, image.ErrUnsupportedPlatform))
}
