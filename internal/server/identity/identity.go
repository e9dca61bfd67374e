// Package identity carries the authenticated caller through a request
// context.
package identity

import (
	"context"
	"time"
)

// Identity is attached by the request gate once a bearer token has passed
// the revocation check, signature validation and user resolution.
type Identity struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
