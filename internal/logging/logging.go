// Package logging builds the process logger: slog to stderr, optionally
// teed into a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string
	// JSON selects the JSON handler; otherwise text.
	JSON bool
	// File is an optional log file path. Empty disables file logging.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New builds a logger from cfg. The returned closer releases the log file and
// is never nil.
func New(cfg Config) (*slog.Logger, io.Closer) {
	return newWithConsole(cfg, os.Stderr)
}

func newWithConsole(cfg Config, console io.Writer) (*slog.Logger, io.Closer) {
	var w io.Writer = console
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := cfg.MaxBackups
		if maxBackups < 0 {
			maxBackups = 3
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize, // megabytes
			MaxBackups: maxBackups,
		}
		w = io.MultiWriter(console, lj)
		closer = lj
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closer
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithChat returns a logger tagged with a chat id.
func WithChat(logger *slog.Logger, chatID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With("chat_id", chatID)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
