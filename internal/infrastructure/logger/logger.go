// Package logger configures the process-wide structured logger (grounded on
// the pack's internal/infrastructure/logger/logger.go).
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a JSON-handler slog.Logger at the given level and installs it
// as the process default. component is attached to every record so logs
// from the validator, compiler, and scheduler can be told apart.
func Setup(level, component string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slog.NewJSONHandler(os.Stdout, opts)

	l := slog.New(handler)
	if component != "" {
		l = l.With("component", component)
	}
	slog.SetDefault(l)

	return l
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Default returns the process default logger, or a bare info-level logger
// if nothing called Setup yet.
func Default() *slog.Logger {
	return slog.Default()
}
