// Package logging threads request scoped slog loggers through contexts
// so the mediation services and HTTP layer report into one structured
// stream with shared request attributes.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger derives a context carrying the logger. A nil logger
// leaves the context unchanged.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by the context, or nil when
// none was attached. Callers fall back to their own logger on nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}
