// Package logger provides structured logging setup for PromptForge.
package logger

import (
	"io"
	"log/slog"
	"strings"

	"github.com/Strob0t/PromptForge/internal/config"
)

// Async handler sizing. Records beyond the buffer are dropped, never block.
const (
	asyncBuffer  = 4096
	asyncWorkers = 1
)

// New creates a *slog.Logger from the given Logging config writing JSON to
// w, with a "service" attribute on every record. The returned Closer
// flushes buffered records when async logging is enabled.
func New(cfg config.Logging, w io.Writer) (*slog.Logger, Closer) {
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	var closer Closer = nopCloser{}
	if cfg.Async {
		ah := NewAsyncHandler(handler, asyncBuffer, asyncWorkers)
		handler, closer = ah, ah
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// parseLevel converts a string log level to slog.Level.
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
