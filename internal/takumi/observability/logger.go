// Package observability provides structured logging helpers for Takumi.
//
// It wraps log/slog with request ID propagation so that every log line
// emitted while serving one user request carries the request context.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/bdobrica/Takumi/common/trace"
)

// Setup configures the global slog logger according to the provided level and
// format strings (e.g. level="info", format="json"). Logs go to stderr so the
// agent's own answers on stdout stay clean.
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a child logger that always includes the request_id
// from ctx.
func WithRequest(ctx context.Context) *slog.Logger {
	id := trace.FromContext(ctx)
	if id == "" {
		return slog.Default()
	}
	return slog.With("request_id", id)
}
