package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/surgeonmatch/gateway/internal/observability"
)

// keyFile is the on-disk YAML shape of the key file.
type keyFile struct {
	Keys []struct {
		KeyHash string `yaml:"keyHash"`
		OwnerID string `yaml:"ownerId"`
		Tier    string `yaml:"tier"`
		Active  bool   `yaml:"active"`
	} `yaml:"keys"`
}

// FileStore is a key store backed by a YAML file. The file is watched
// and reloaded on change, so keys can be rotated or revoked without a
// restart.
type FileStore struct {
	*MemoryStore

	path          string
	watcher       *fsnotify.Watcher
	logger        observability.Logger
	debounceDelay time.Duration
	stopCh        chan struct{}
	stoppedCh     chan struct{}
	mu            sync.Mutex
	running       bool
}

// FileStoreOption is a functional option for configuring the file store.
type FileStoreOption func(*FileStore)

// WithFileStoreLogger sets the logger for the file store.
func WithFileStoreLogger(logger observability.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithDebounceDelay sets the debounce delay for file change events.
func WithDebounceDelay(delay time.Duration) FileStoreOption {
	return func(s *FileStore) {
		s.debounceDelay = delay
	}
}

// NewFileStore creates a file-backed key store and performs the
// initial load. Call Start to begin watching for changes.
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	s := &FileStore{
		MemoryStore:   NewMemoryStore(),
		path:          absPath,
		logger:        observability.NopLogger(),
		debounceDelay: 100 * time.Millisecond,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// load reads the key file and swaps the record set.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path) //nolint:gosec // path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to read key file %s: %w", s.path, err)
	}

	var kf keyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return fmt.Errorf("failed to parse key file %s: %w", s.path, err)
	}

	records := make([]*KeyRecord, 0, len(kf.Keys))
	for i, k := range kf.Keys {
		if k.KeyHash == "" || k.OwnerID == "" {
			return fmt.Errorf("key file %s: keys[%d]: keyHash and ownerId are required", s.path, i)
		}
		records = append(records, &KeyRecord{
			KeyHash: k.KeyHash,
			OwnerID: k.OwnerID,
			Tier:    k.Tier,
			Active:  k.Active,
		})
	}

	s.Replace(records)
	s.logger.Info("API key file loaded",
		observability.String("path", s.path),
		observability.Int("keys", len(records)),
	)
	return nil
}

// Start begins watching the key file for changes.
func (s *FileStore) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("file store already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	// Watch the directory rather than the file itself so atomic
	// rename-based writes (the common editor/configmap pattern) are
	// still observed.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		s.mu.Unlock()
		return err
	}

	s.watcher = watcher
	s.running = true
	s.mu.Unlock()

	go s.watchLoop(ctx)
	return nil
}

// watchLoop processes file events with debouncing until stopped.
func (s *FileStore) watchLoop(ctx context.Context) {
	defer close(s.stoppedCh)

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(s.debounceDelay)
			debounceCh = debounce.C

		case <-debounceCh:
			debounceCh = nil
			if err := s.load(); err != nil {
				// Keep serving the previous record set on a bad reload.
				s.logger.Error("API key file reload failed",
					observability.String("path", s.path),
					observability.Error(err),
				)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("key file watcher error", observability.Error(err))

		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops watching and releases the watcher.
func (s *FileStore) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	_ = s.watcher.Close()
	<-s.stoppedCh
}
