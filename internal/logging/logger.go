// Package logging provides structured logging configuration using log/slog.
//
// Every log entry emitted during a migration run carries the run ID, so
// interleaved per-table output can be correlated back to a single run.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format when the tool runs under a log collector;
// "text" is for humans watching a migration from a terminal.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
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

// ForRun returns a logger that tags every entry with the run ID.
//
// Usage:
//
//	logger := logging.ForRun(runID)
//	logger.Info("table migration started", "table", name)
func ForRun(runID string) *slog.Logger {
	return slog.Default().With("run_id", runID)
}

// WithFields returns a logger carrying additional structured fields,
// useful for a per-table logger that lives for one pipeline pass.
func WithFields(logger *slog.Logger, args ...any) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(args...)
}
