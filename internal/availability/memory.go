package availability

import (
	"context"
	"sync"
	"time"
)

const defaultJanitorInterval = time.Minute

// MemoryStore is an in-memory availability store with background
// eviction of expired entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry

	now         nowFunc
	stopJanitor chan struct{}
	closeOnce   sync.Once
}

// MemoryStoreOption is a functional option for the memory store.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryStoreClock overrides the time source. Test use only.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory availability store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:     make(map[Key]Entry),
		now:         time.Now,
		stopJanitor: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.janitor(defaultJanitorInterval)

	return s
}

// Get implements Store. Expired entries are treated as absent.
func (s *MemoryStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || entry.Expired(s.now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	s.entries[entry.Key()] = entry
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close implements Store. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopJanitor)
	})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// janitor periodically evicts expired entries.
func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stopJanitor:
			return
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, key)
		}
	}
}
