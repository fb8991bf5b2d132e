// Package idempotency stores the responses of review submissions so that a
// client retrying with the same Idempotency-Key gets the original result
// instead of creating a second review.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned when an idempotency key is not found.
	ErrKeyNotFound = errors.New("idempotency key not found")

	// ErrKeyExists is returned when attempting to store a duplicate key.
	ErrKeyExists = errors.New("idempotency key already exists")

	// ErrInvalidKey is returned when the key is empty or contains
	// characters outside printable ASCII.
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrKeyTooLong is returned when the key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// MaxKeyLength is the maximum allowed length for an idempotency key.
const MaxKeyLength = 64

// DefaultExpiry is how long a stored response is replayed.
const DefaultExpiry = 24 * time.Hour

// Record is a stored response for one key.
type Record struct {
	Key         string    `json:"key"`         // scoped key, see ScopedKey
	Fingerprint string    `json:"fingerprint"` // hash of the request body
	StatusCode  int       `json:"status_code"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateKey checks a client-supplied key.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x21 || key[i] > 0x7e {
			return ErrInvalidKey
		}
	}
	return nil
}

// ScopedKey namespaces a client key by method and path so the same key sent
// to two places does not collide.
func ScopedKey(method, path, key string) string {
	return method + " " + path + " " + key
}

// Fingerprint hashes a request body. A retry must carry the same body.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Repository persists records.
type Repository interface {
	// Get returns the record for key or ErrKeyNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// Store saves a record. Returns ErrKeyExists if the key is taken.
	Store(ctx context.Context, record *Record) error
}
