// Package logging configures the slog loggers used across the engine.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init installs a text handler writing to w at the given level. Passing nil
// discards all output, which is what tests want.
func Init(w io.Writer, level slog.Level) {
	if w == nil {
		w = io.Discard
	}
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// InitJSON installs a JSON handler for structured log collection.
func InitJSON(w io.Writer, level slog.Level) {
	if w == nil {
		w = io.Discard
	}
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ForComponent returns a logger tagged with the component name, e.g. "sync"
// or "render".
func ForComponent(name string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger.With("component", name)
}
