// ABOUTME: Structured logging configuration using log/slog.
// ABOUTME: Logs to stderr for CLI commands and to debug.log while the TUI owns the terminal.

package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Init configures the default slog logger to write to stderr.
// level: debug, info, warn, error (default: info)
// format: text, json (default: text)
func Init(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// InitFile points the default logger at <configDir>/debug.log and returns
// a function that closes the file. An empty configDir discards all logs.
func InitFile(configDir, level, format string) (func(), error) {
	if configDir == "" {
		slog.SetDefault(New(io.Discard, level, format))
		return func() {}, nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(LogPath(configDir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(New(f, level, format))
	return func() { f.Close() }, nil
}

// LogPath returns where the TUI writes its log
func LogPath(configDir string) string {
	return filepath.Join(configDir, "debug.log")
}

// New builds a logger for w with the given level and format
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
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
