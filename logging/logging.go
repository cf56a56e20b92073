// Package logging provides service-scoped slog loggers. The TUI owns stdout, so
// records go to a file configured once at startup.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu   sync.RWMutex
	root = slog.New(slog.NewTextHandler(io.Discard, nil))
	file *os.File
)

// Setup routes all service loggers to path at the given level ("debug", "info", "warn", "error").
// An empty path keeps logging discarded.
func Setup(path, level string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	if path == "" {
		root = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	file = f
	root = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(level)}))
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	root = slog.New(slog.NewTextHandler(io.Discard, nil))
	return err
}

// ForService returns a logger tagged with the service name.
func ForService(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With("service", name)
}

// Discard returns a logger that drops everything. Used by tests and as a nil fallback.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
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
