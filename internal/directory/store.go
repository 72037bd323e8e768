package directory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/surgeonmatch/gateway/internal/util"
)

// Store provides read access to surgeon records.
type Store interface {
	// Snapshot returns all records as an immutable per-request snapshot.
	Snapshot(ctx context.Context) ([]Surgeon, error)

	// Get returns the record for the given NPI.
	Get(ctx context.Context, npi string) (Surgeon, error)
}

// MemoryStore is an in-memory Store. Uniqueness by NPI is enforced on
// load: a later record with the same NPI replaces the earlier one.
type MemoryStore struct {
	mu       sync.RWMutex
	surgeons map[string]Surgeon
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		surgeons: make(map[string]Surgeon),
	}
}

// directoryFile is the YAML shape of a surgeon seed file.
type directoryFile struct {
	Surgeons []Surgeon `yaml:"surgeons"`
}

// NewMemoryStoreFromFile loads surgeon records from a YAML file.
func NewMemoryStoreFromFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}

	s := NewMemoryStore()
	for _, surgeon := range file.Surgeons {
		if !ValidNPI(surgeon.NPI) {
			return nil, fmt.Errorf("directory file %s: invalid npi %q", path, surgeon.NPI)
		}
		s.Put(surgeon)
	}
	return s, nil
}

// Put inserts or replaces a record.
func (s *MemoryStore) Put(surgeon Surgeon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surgeons[surgeon.NPI] = surgeon
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context) ([]Surgeon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Surgeon, 0, len(s.surgeons))
	for _, surgeon := range s.surgeons {
		snapshot = append(snapshot, surgeon)
	}
	return snapshot, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, npi string) (Surgeon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	surgeon, ok := s.surgeons[npi]
	if !ok {
		return Surgeon{}, util.NewNotFoundError("surgeon", npi)
	}
	return surgeon, nil
}

// Count returns the number of records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.surgeons)
}
