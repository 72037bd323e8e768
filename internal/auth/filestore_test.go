package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyFileV1 = `
keys:
  - keyHash: "hash-one"
    ownerId: "acme"
    tier: "standard"
    active: true
`

const keyFileV2 = `
keys:
  - keyHash: "hash-one"
    ownerId: "acme"
    tier: "standard"
    active: false
  - keyHash: "hash-two"
    ownerId: "globex"
    tier: "premium"
    active: true
`

func writeKeyFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileStore_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	writeKeyFile(t, path, keyFileV1)

	store, err := NewFileStore(path)
	require.NoError(t, err)

	record, err := store.Lookup(context.Background(), "hash-one")
	require.NoError(t, err)
	assert.Equal(t, "acme", record.OwnerID)
	assert.True(t, record.Active)
}

func TestFileStore_LoadErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid record", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "keys.yaml")
		writeKeyFile(t, path, "keys:\n  - ownerId: orphan\n")
		_, err := NewFileStore(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "keyHash and ownerId are required")
	})
}

func TestFileStore_ReloadOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	writeKeyFile(t, path, keyFileV1)

	store, err := NewFileStore(path, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Start(ctx))
	defer store.Stop()

	writeKeyFile(t, path, keyFileV2)

	// Reload is asynchronous; poll until the new record appears.
	require.Eventually(t, func() bool {
		_, err := store.Lookup(context.Background(), "hash-two")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	record, err := store.Lookup(context.Background(), "hash-one")
	require.NoError(t, err)
	assert.False(t, record.Active, "rotation should revoke the old key")
}

func TestFileStore_BadReloadKeepsPreviousKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	writeKeyFile(t, path, keyFileV1)

	store, err := NewFileStore(path, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Start(ctx))
	defer store.Stop()

	writeKeyFile(t, path, "keys: [broken")

	// Give the watcher time to observe the bad write, then confirm the
	// previous record set is still served.
	time.Sleep(200 * time.Millisecond)
	record, err := store.Lookup(context.Background(), "hash-one")
	require.NoError(t, err)
	assert.Equal(t, "acme", record.OwnerID)
}
