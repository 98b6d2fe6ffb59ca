// Package observability carries request-scoped logging helpers shared by the
// HTTP server and the queue workers.
package observability

import (
	"context"
	"log/slog"
)

// loggerContextKey is the private context key used to store a *slog.Logger.
type loggerContextKey struct{}

// checkIDContextKey is the private context key used to store the originating
// check id so that worker logs can be correlated with the check that spawned
// the job.
type checkIDContextKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or the default
// slog logger when none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if v := ctx.Value(loggerContextKey{}); v != nil {
		if lg, ok := v.(*slog.Logger); ok && lg != nil {
			return lg
		}
	}
	return slog.Default()
}

// ContextWithCheckID stores a non-empty check id in the context.
func ContextWithCheckID(ctx context.Context, checkID string) context.Context {
	if ctx == nil || checkID == "" {
		return ctx
	}
	return context.WithValue(ctx, checkIDContextKey{}, checkID)
}

// CheckIDFromContext retrieves the check id from the context, or an empty
// string when none is present.
func CheckIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(checkIDContextKey{}); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
