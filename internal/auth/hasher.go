package auth

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash algorithm names.
const (
	HashAlgSHA256 = "sha256"
	HashAlgSHA512 = "sha512"
	HashAlgBcrypt = "bcrypt"
)

// Hasher hashes and verifies API keys.
type Hasher interface {
	// Hash returns the storable hash of a raw key.
	Hash(key string) (string, error)

	// Verify reports whether the raw key matches the stored hash.
	Verify(key, storedHash string) bool

	// Deterministic reports whether Hash always produces the same
	// output for the same input. Deterministic hashers support direct
	// store lookup by hash; others require a scan.
	Deterministic() bool
}

// NewHasher returns the hasher for the given algorithm name.
func NewHasher(algorithm string) (Hasher, error) {
	switch algorithm {
	case "", HashAlgSHA256:
		return &SHA256Hasher{}, nil
	case HashAlgSHA512:
		return &SHA512Hasher{}, nil
	case HashAlgBcrypt:
		return &BcryptHasher{}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// SHA256Hasher hashes keys with SHA-256, hex encoded.
type SHA256Hasher struct{}

// Hash implements Hasher.
func (h *SHA256Hasher) Hash(key string) (string, error) {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]), nil
}

// Verify implements Hasher.
func (h *SHA256Hasher) Verify(key, storedHash string) bool {
	sum := sha256.Sum256([]byte(key))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// Deterministic implements Hasher.
func (h *SHA256Hasher) Deterministic() bool { return true }

// SHA512Hasher hashes keys with SHA-512, hex encoded.
type SHA512Hasher struct{}

// Hash implements Hasher.
func (h *SHA512Hasher) Hash(key string) (string, error) {
	sum := sha512.Sum512([]byte(key))
	return hex.EncodeToString(sum[:]), nil
}

// Verify implements Hasher.
func (h *SHA512Hasher) Verify(key, storedHash string) bool {
	sum := sha512.Sum512([]byte(key))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// Deterministic implements Hasher.
func (h *SHA512Hasher) Deterministic() bool { return true }

// BcryptHasher hashes keys with bcrypt. Bcrypt output is salted, so
// records cannot be looked up by hash; the authenticator scans instead.
type BcryptHasher struct{}

// Hash implements Hasher.
func (h *BcryptHasher) Hash(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify implements Hasher.
func (h *BcryptHasher) Verify(key, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(key)) == nil
}

// Deterministic implements Hasher.
func (h *BcryptHasher) Deterministic() bool { return false }
