package auth

import "errors"

// Common errors for API key authentication.
var (
	// ErrUnauthenticated is the only failure the gateway surfaces to
	// callers. Missing, unknown, and revoked keys all map to it so a
	// probing client cannot distinguish them.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrKeyNotFound indicates that no record matches the key hash.
	ErrKeyNotFound = errors.New("API key not found")

	// ErrKeyRevoked indicates that the key exists but is inactive.
	ErrKeyRevoked = errors.New("API key revoked")

	// ErrEmptyKey indicates that no key was presented.
	ErrEmptyKey = errors.New("API key is empty")
)
