// Package log owns the process-wide structured logger. Build driver
// subsystems tag their records with a component attribute; per-action records
// carry the dashboard task id and verb.
package log

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// Init configures the global logger and may be called again to reconfigure.
// The level is parsed case-insensitively ("debug", "INFO", "warn+2", ...);
// unparseable levels fall back to info. A "text" format selects the human
// handler, anything else JSON.
func Init(level, format string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	mu.Lock()
	logger = slog.New(handler)
	mu.Unlock()
	slog.SetDefault(Get())
}

// Get returns the configured logger, initializing a default one on first use.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		var l slog.Level // info
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	}
	return logger
}

// WithComponent tags a logger with the subsystem emitting the records
// ("driver", "rules", "journal", ...).
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithTask tags a logger with a dashboard task's identity, so one action's
// records can be correlated across driver, dashboard, and journal output.
func WithTask(id, verb string) *slog.Logger {
	return Get().With(slog.String("task_id", id), slog.String("verb", verb))
}
