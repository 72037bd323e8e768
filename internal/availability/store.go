package availability

import (
	"context"
	"time"
)

// Store persists availability entries. Implementations handle expiry
// themselves; Get never returns an expired entry.
type Store interface {
	// Get returns the entry for key and whether one was found.
	Get(ctx context.Context, key Key) (Entry, bool, error)

	// Set stores an entry until its ExpiresAt.
	Set(ctx context.Context, entry Entry) error

	// Delete removes the entry for key.
	Delete(ctx context.Context, key Key) error

	// Close releases store resources.
	Close() error
}

// nowFunc is the time source used by stores, overridable in tests.
type nowFunc func() time.Time
