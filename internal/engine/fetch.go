package engine

import (
	"context"

	"github.com/google/uuid"
)

type fetchIDKey struct{}

// ContextWithFetchID attaches a correlation ID to a query. Transports use
// it to hand the same ID back to the caller that shows up in the logs.
func ContextWithFetchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, fetchIDKey{}, id)
}

// FetchIDFromContext returns the ID set by ContextWithFetchID, if any.
func FetchIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(fetchIDKey{}).(string)
	return id, ok && id != ""
}

// NewFetchID returns a fresh correlation ID.
func NewFetchID() string {
	return uuid.NewString()
}

func fetchID(ctx context.Context) string {
	if id, ok := FetchIDFromContext(ctx); ok {
		return id
	}
	return NewFetchID()
}
