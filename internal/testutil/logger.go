// Package testutil holds small helpers shared by the test suites.
package testutil

import (
	"io"
	"log/slog"
)

// NopLogger returns a slog.Logger whose output is discarded, for
// wiring components under test without emitting log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
