// Package revocations is the revocation ledger: the durable set of session
// tokens logged out before their natural expiry. Entries are keyed by
// HashToken of the exact token string.
package revocations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type Repository interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Revoke is idempotent. It returns only after the entry is committed.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	// Purge deletes entries that expired at or before now.
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// HashToken returns the hex SHA-256 digest of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
