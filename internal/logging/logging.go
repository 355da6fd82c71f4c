// Package logging builds the structured logger shared by the CLI and the
// MCP server. Output always goes to stderr: stdout carries the MCP protocol
// in server mode and CSV or JSON in some CLI commands.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// New returns a slog.Logger writing to stderr with the provided level
// string (debug, info, warn, error). format may be "json" or "text".
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Setup builds the logger and installs it as the slog default.
func Setup(level, format string) *slog.Logger {
	logger := New(level, format)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
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

// LogRunStart logs the beginning of a pipeline run.
func LogRunStart(logger *slog.Logger, mode string, keys ...string) {
	logger.Info("run started", "mode", mode, "frames", keys)
}

// LogRunComplete logs a finished run.
func LogRunComplete(logger *slog.Logger, mode string, runID int64, duration time.Duration, regions int) {
	logger.Info("run completed",
		"mode", mode,
		"run_id", runID,
		"regions", regions,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, mode string, duration time.Duration, err error) {
	logger.Error("run failed",
		"mode", mode,
		"duration_ms", duration.Milliseconds(),
		"error", err.Error(),
	)
}
