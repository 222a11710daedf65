package goSession

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a correlation ID to ctx. The transport stage sends it
// as X-Request-Id and the Authority copies it into audit metadata.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the correlation ID attached by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
