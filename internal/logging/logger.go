package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON slog logger configured at the provided level. If the
// level string is invalid it defaults to info. The returned LevelVar lets
// the debug_logging shop setting raise or restore the level at runtime.
func New(level string) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), lvl
}

// Toggle returns a callback that switches lvl to debug when enabled and back
// to base otherwise.
func Toggle(lvl *slog.LevelVar, base slog.Level) func(debug bool) {
	return func(debug bool) {
		if debug {
			lvl.Set(slog.LevelDebug)
			return
		}
		lvl.Set(base)
	}
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
