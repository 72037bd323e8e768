package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IncrementWithExpiry(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	value, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), value)

	value, err = s.IncrementWithExpiry(ctx, "key1", 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
}

func TestMemoryStore_Get(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, IsKeyNotFound(err))

	_, err = s.IncrementWithExpiry(ctx, "key1", 3, time.Minute)
	require.NoError(t, err)

	value, err := s.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), value)
}

func TestMemoryStore_Expiration(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "key1", 4, 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = s.Get(ctx, "key1")
	assert.True(t, IsKeyNotFound(err))

	// Incrementing an expired counter starts a fresh window.
	value, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "key1"))

	_, err = s.Get(ctx, "key1")
	assert.True(t, IsKeyNotFound(err))

	// Deleting a missing key is not an error.
	assert.NoError(t, s.Delete(ctx, "missing"))
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, err := s.IncrementWithExpiry(ctx, "shared", 1, time.Minute)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	value, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perGoroutine), value)
}

func TestMemoryStore_Cleanup(t *testing.T) {
	t.Parallel()

	s := NewMemoryStoreWithCleanupInterval(10 * time.Millisecond)
	defer s.Close()

	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "short", 1, 5*time.Millisecond)
	require.NoError(t, err)
	_, err = s.IncrementWithExpiry(ctx, "long", 1, time.Minute)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Size() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_CloseIdempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
