// Package logging wires relic's configured level and format into the
// default slog logger, the same way the rest of the corpus sets up
// logging in its entrypoints.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/tuannm99/relic/internal/config"
)

// Setup installs a slog.Default logger reflecting cfg.Logging, writing
// to w. cmd/relic passes os.Stderr.
func Setup(cfg *config.Config, w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level(cfg.Logging.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func level(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
