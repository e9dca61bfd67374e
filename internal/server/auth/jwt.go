// Package auth holds the session token codec and the password hasher.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Claims are the registered JWT claims carried by a session token.
// Subject is the user's email, ID is a ULID unique per issued token.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec issues and parses HS256-signed session tokens with a fixed TTL.
// It is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a Codec signing with secret.
func NewCodec(secret []byte, ttl time.Duration, issuer string, opts ...CodecOption) *Codec {
	c := &Codec{secret: secret, ttl: ttl, issuer: issuer, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject that expires TTL from now.
func (c *Codec) Issue(subject string) (string, time.Time, error) {
	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(c.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ulid.Make().String(),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, issuer and expiry of token and returns its
// claims. Any failure is reported as common.ErrInvalidToken.
func (c *Codec) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Validate reports whether token is correctly signed and not yet expired.
func (c *Codec) Validate(token string) bool {
	_, err := c.Parse(token)
	return err == nil
}

// SubjectOf returns the subject of a valid token.
func (c *Codec) SubjectOf(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiryOf returns the expiry of a valid token.
func (c *Codec) ExpiryOf(token string) (time.Time, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}
