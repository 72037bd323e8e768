package availability

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(fetchedAt time.Time) Entry {
	return Entry{
		NPI:           "1234567890",
		RequestedDate: "2026-09-15",
		Available:     true,
		Notes:         "open slot",
		FetchedAt:     fetchedAt,
		ExpiresAt:     fetchedAt.Add(time.Hour),
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()
	entry := testEntry(time.Now())

	_, ok, err := s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, entry))

	got, ok, err := s.Get(ctx, entry.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	require.NoError(t, s.Delete(ctx, entry.Key()))

	_, ok, err = s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpiredEntryAbsent(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStore(WithMemoryStoreClock(func() time.Time { return now }))
	defer s.Close()

	ctx := context.Background()
	entry := testEntry(now)
	require.NoError(t, s.Set(ctx, entry))

	_, ok, err := s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Hour + time.Second)

	_, ok, err = s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_EvictExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStore(WithMemoryStoreClock(func() time.Time { return now }))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, testEntry(now)))
	assert.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Hour)
	s.evictExpired()
	assert.Equal(t, 0, s.Len())
}

func TestRedisStore_RoundTrip(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	entry := testEntry(time.Now().Truncate(time.Second))

	_, ok, err := s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, entry))

	got, ok, err := s.Get(ctx, entry.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.NPI, got.NPI)
	assert.Equal(t, entry.Available, got.Available)
	assert.Equal(t, entry.Notes, got.Notes)
	assert.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.Delete(ctx, entry.Key()))

	_, ok, err = s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_TTL(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	entry := testEntry(time.Now())
	require.NoError(t, s.Set(ctx, entry))

	mr.FastForward(2 * time.Hour)

	_, ok, err := s.Get(ctx, entry.Key())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_StaleEntryNotWritten(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client)
	t.Cleanup(func() { _ = s.Close() })

	entry := testEntry(time.Now().Add(-2 * time.Hour))
	require.NoError(t, s.Set(context.Background(), entry))
	assert.False(t, mr.Exists("availability:"+entry.Key().String()))
}
