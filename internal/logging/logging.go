// Package logging exposes a swappable *slog.Logger for render diagnostics
// (glyph fallbacks, layout overflows). Defaults to discarding output.
package logging

import (
	"io"
	"log/slog"
	"sync/atomic"
)

// discardHandler mirrors discardHandler (go1.24+) for older toolchains.
var discardHandler = slog.NewTextHandler(io.Discard, nil)

var logger atomic.Pointer[slog.Logger]

// SetLogger configures the package-level logger. Pass nil to disable output.
// Safe for concurrent use.
func SetLogger(sl *slog.Logger) {
	if sl == nil {
		logger.Store(slog.New(discardHandler))
	} else {
		logger.Store(sl)
	}
}

// Logger returns the package-level logger, or a discard logger if none was set.
func Logger() *slog.Logger {
	l := logger.Load()
	if l == nil {
		l = slog.New(discardHandler)
		logger.Store(l)
	}
	return l
}
