package requestctx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(ctxKey{}).(string); ok {
		return value
	}
	return ""
}

// Logger returns the default logger tagged with the request id, if any.
func Logger(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return slog.Default().With("requestId", id)
	}
	return slog.Default()
}
