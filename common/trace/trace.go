// Package trace provides request ID generation and context propagation so
// that every log line produced while serving one user request can be
// correlated across the orchestrator, tool, and RPC layers.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// requestKey is the unexported context key used to store the request ID.
type requestKey struct{}

// NewID returns a fresh request identifier.
func NewID() string {
	return "r_" + uuid.NewString()
}

// WithRequestID returns a child context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey{}, id)
}

// FromContext extracts the request ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestKey{}).(string); ok {
		return v
	}
	return ""
}
