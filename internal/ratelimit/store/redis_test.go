package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_IncrementWithExpiry(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	value, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = s.IncrementWithExpiry(ctx, "key1", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), value)

	// Expiry is set on the first increment only.
	ttl := mr.TTL("ratelimit:key1")
	assert.Greater(t, ttl, 50*time.Second)
}

func TestRedisStore_WindowExpiry(t *testing.T) {
	t.Parallel()

	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "key1", 5, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.Get(ctx, "key1")
	assert.True(t, IsKeyNotFound(err))

	value, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestRedisStore_Get(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, IsKeyNotFound(err))

	_, err = s.IncrementWithExpiry(ctx, "key1", 7, time.Minute)
	require.NoError(t, err)

	value, err := s.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)
}

func TestRedisStore_Delete(t *testing.T) {
	t.Parallel()

	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "key1"))

	_, err = s.Get(ctx, "key1")
	assert.True(t, IsKeyNotFound(err))
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, WithKeyPrefix("quota:"))
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "key1", 1, time.Minute)
	require.NoError(t, err)

	assert.True(t, mr.Exists("quota:key1"))
}

func TestNewRedisStoreFromURL_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStoreFromURL(context.Background(), "not-a-url")
	assert.Error(t, err)
}
