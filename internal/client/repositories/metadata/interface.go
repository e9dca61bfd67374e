// Package metadata stores the CLI session state as key/value pairs.
package metadata

import (
	"context"
)

// Keys of the session entries.
const (
	KeyToken     = "token"
	KeyEmail     = "email"
	KeyExpiresAt = "expires_at"
)

// Repository is a small key/value store. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
