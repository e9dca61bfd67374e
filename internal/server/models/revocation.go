package models

import "time"

// RevokedToken is a revocation ledger entry. TokenHash is the hex SHA-256
// of the exact token string.
type RevokedToken struct {
	TokenHash string    `bson:"token_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	RevokedAt time.Time `bson:"revoked_at"`
}
