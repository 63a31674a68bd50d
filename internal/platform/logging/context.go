package logging

import (
	"context"
	"log/slog"
)

// Attribute keys that correlate records across the HTTP API, the sync loop
// and the remote collection.
const (
	KeyRequestID     = "request_id"
	KeyCorrelationID = "correlation_id"
	KeySyncCycle     = "sync_cycle"
)

type loggerKey struct{}

// FromContext returns the logger carried by ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, slog.Default())
}

// FromContextOr returns the logger carried by ctx, or fallback when ctx has none.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return logger
		}
	}

	return fallback
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With stores the context logger extended with args, in slog.Logger.With form.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// WithRequestID tags the context logger with the API request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return With(ctx, slog.String(KeyRequestID, requestID))
}

// WithCorrelationID tags the context logger with the caller's correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return With(ctx, slog.String(KeyCorrelationID, correlationID))
}

// SetDefault makes logger the fallback for contexts without one.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
