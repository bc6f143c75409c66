// Package dblog wraps log/slog with the small amount of global-logger
// ceremony the rest of the module expects: a package-level Logger set
// once at startup, defaulting to a usable stderr logger if no one calls
// Init.
package dblog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Config controls the level and format of the global logger.
type Config struct {
	Level  string // debug|info|warn|error
	JSON   bool
	Output *os.File // defaults to os.Stderr
}

// Init (re)configures the global logger. Safe to call more than once;
// later calls replace the logger outright rather than erroring, since
// the buffer pool has no notion of a single startup phase the way a
// full server does.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	mu.Lock()
	logger = slog.New(handler)
	mu.Unlock()
}

// L returns the current global logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
