// Package common defines sentinel errors and small helpers shared by the
// storage, service and CLI layers of ratingkeeper. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrSchemaMismatch    = errors.New("schema mismatch")

	// Credential errors. ErrNoMatch covers both an unknown username and a
	// wrong secret so callers cannot tell the two apart.
	ErrNoMatch            = errors.New("no matching account")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Rating errors.
	ErrInvalidRating = errors.New("invalid rating value")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
