// Package logger configures the process-wide slog handler and carries
// per-invocation loggers through contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LevelCritical sits above slog.LevelError and is rendered as "CRITICAL".
const LevelCritical = slog.Level(12)

type contextKey struct{}

var setupOnce sync.Once

// Setup installs the default handler. Only the first call has any effect.
func Setup(level string, format string) {
	setupOnce.Do(func() {
		slog.SetDefault(New(os.Stdout, level, format))
	})
}

// New builds a logger writing to w with the given level and format
// ("json" or text).
func New(w io.Writer, level string, format string) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: renameLevel,
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// WithInvocationID returns a context whose logger is tagged with id.
func WithInvocationID(ctx context.Context, base *slog.Logger, invocationID string) context.Context {
	if base == nil {
		base = slog.Default()
	}
	return context.WithValue(ctx, contextKey{}, base.With("invocation_id", invocationID))
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// Critical logs msg at LevelCritical.
func Critical(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.Log(ctx, LevelCritical, msg, args...)
}

func renameLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}
