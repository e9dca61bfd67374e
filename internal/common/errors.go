// Package common defines shared constants and sentinel errors used across
// the server and client layers of authkeeper. Callers should use errors.Is to
// match these values; repositories and services wrap them with %w.
package common

import "errors"

var (
	// Credential store errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrInvalidInput rejects requests missing required fields.
	ErrInvalidInput = errors.New("invalid input")

	// Login errors. Both are reported to callers with the same message.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors.
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")

	// ErrStoreUnavailable wraps any failure of a durable store (SQL, MongoDB).
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInternal is returned for failures that are neither caller nor store errors.
	ErrInternal = errors.New("internal error")
)
