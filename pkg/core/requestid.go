package core

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// NewRequestID generates a new request ID
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying the request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID extracts the request ID from ctx, or "" if there is none
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
