package hosttest

import (
	"strings"
	"testing"

	"github.com/go-kit/log"
)

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

// Logger sends logfmt output to the test log.
func Logger(t testing.TB) log.Logger {
	return log.NewSyncLogger(log.NewLogfmtLogger(testWriter{t}))
}
