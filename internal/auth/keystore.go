// Package auth provides API key admission control for the gateway.
package auth

import (
	"context"
	"sync"

	"github.com/surgeonmatch/gateway/internal/config"
)

// KeyRecord is one API key as held by the key store. Records are
// read-only from the gateway's perspective.
type KeyRecord struct {
	KeyHash string
	OwnerID string
	Tier    string
	Active  bool
}

// Store is the key store collaborator. Implementations must be safe
// for concurrent use.
type Store interface {
	// Lookup retrieves a record by key hash. Returns ErrKeyNotFound
	// when no record matches.
	Lookup(ctx context.Context, keyHash string) (*KeyRecord, error)

	// List returns all records. Needed for salted hash algorithms
	// where lookup by hash is not possible.
	List(ctx context.Context) ([]*KeyRecord, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*KeyRecord
}

// NewMemoryStore creates an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*KeyRecord)}
}

// NewMemoryStoreFromConfig creates a store seeded from static config keys.
func NewMemoryStoreFromConfig(keys []config.StaticKey) *MemoryStore {
	s := NewMemoryStore()
	for _, k := range keys {
		s.Put(&KeyRecord{
			KeyHash: k.KeyHash,
			OwnerID: k.OwnerID,
			Tier:    k.Tier,
			Active:  k.Active,
		})
	}
	return s
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, keyHash string) (*KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.keys[keyHash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return record, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*KeyRecord, 0, len(s.keys))
	for _, record := range s.keys {
		records = append(records, record)
	}
	return records, nil
}

// Put adds or replaces a record.
func (s *MemoryStore) Put(record *KeyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[record.KeyHash] = record
}

// Remove deletes a record by key hash.
func (s *MemoryStore) Remove(keyHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keyHash)
}

// Replace swaps the full record set atomically.
func (s *MemoryStore) Replace(records []*KeyRecord) {
	keys := make(map[string]*KeyRecord, len(records))
	for _, record := range records {
		keys[record.KeyHash] = record
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

// Count returns the number of records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
