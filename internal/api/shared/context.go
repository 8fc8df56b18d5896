// Package shared holds the cross-cutting pieces of the API layer: request
// context keys, the JSON decode/validate pipeline, and response writing.
package shared

import (
	"context"

	"github.com/positionhq/position-api/internal/domain"
)

// contextKey is the private type for context keys in this package.
type contextKey int

const (
	userKey contextKey = iota
	traceIDKey
)

// WithUser returns a context carrying the authenticated principal.
func WithUser(ctx context.Context, user *domain.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated principal, if any.
func UserFromContext(ctx context.Context) (*domain.AuthenticatedUser, bool) {
	user, ok := ctx.Value(userKey).(*domain.AuthenticatedUser)
	return user, ok
}

// WithTraceID returns a context carrying the request trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext retrieves the request trace ID, or "" when absent.
func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}
