// Package zkglog builds the engine's structured logger. Every
// cmd/zkg/main.go-style entrypoint calls New once at startup; library
// packages never construct their own logger, they take one in.
package zkglog

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// New returns a logger writing to w. When w is a terminal, output is
// colored and human-readable via tint; otherwise it falls back to
// structured JSON, matching how piped/aggregated logs are usually
// consumed.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
