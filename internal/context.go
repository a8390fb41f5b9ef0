package internal

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds one store round trip when no limit is configured.
const DefaultQueryTimeout = 5 * time.Second

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID is empty outside a request.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// QueryContext limits ctx to one store round trip. A parent deadline that is
// sooner still wins.
func QueryContext(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		limit = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, limit)
}
