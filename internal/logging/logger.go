// Package logging holds the logger shared by the exporter's core packages.
//
// By default nothing is logged. The command line installs a handler with
// SetLogger when verbose output is requested.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger replaces the logger used by raster, timeline, codec and engine.
// Passing nil restores the silent default. Safe for concurrent use.
//
// Levels:
//   - Debug: per-frame diagnostics (bake steps, pixel write counts)
//   - Info: pipeline stages and committed artifacts
//   - Warn: recovered input problems (unknown shape type, bad colour)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
