package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_AllowsBurst(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(60, time.Minute, 5)
	defer l.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := l.Allow(ctx, "client1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}

	result, err := l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestTokenBucketLimiter_Refills(t *testing.T) {
	t.Parallel()

	// 100 tokens per second so the bucket refills quickly.
	l := NewTokenBucketLimiter(100, time.Second, 1)
	defer l.Close()

	ctx := context.Background()

	result, err := l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	time.Sleep(50 * time.Millisecond)

	result, err = l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(60, time.Minute, 1)
	defer l.Close()

	ctx := context.Background()

	result, err := l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = l.Allow(ctx, "client2")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestTokenBucketLimiter_Reset(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(60, time.Minute, 1)
	defer l.Close()

	ctx := context.Background()

	_, err := l.Allow(ctx, "client1")
	require.NoError(t, err)

	result, err := l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	require.NoError(t, l.Reset(ctx, "client1"))

	result, err = l.Allow(ctx, "client1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(60, time.Minute, 1)
	defer l.Close()

	ctx := context.Background()

	_, err := l.Allow(ctx, "client1")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	l.Cleanup(0)

	_, ok := l.buckets.Load("client1")
	assert.False(t, ok)
}

func TestTokenBucketLimiter_CloseIdempotent(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(60, time.Minute, 1)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}

func TestNoopLimiter(t *testing.T) {
	t.Parallel()

	l := NewNoopLimiter()
	ctx := context.Background()

	result, err := l.Allow(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Nil(t, l.GetLimit("anything"))
	assert.NoError(t, l.Reset(ctx, "anything"))
}
