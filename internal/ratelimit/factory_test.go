package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgeonmatch/gateway/internal/config"
)

func TestNew_FixedWindowMemory(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{
		Algorithm: config.AlgorithmFixedWindow,
		Limit:     100,
		Window:    config.Duration(time.Minute),
		Store:     config.StoreMemory,
	}

	limiter, closer, err := New(context.Background(), cfg, "", nil)
	require.NoError(t, err)
	defer closer()

	assert.IsType(t, &FixedWindowLimiter{}, limiter)

	result, err := limiter.Allow(context.Background(), "client1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 100, result.Limit)
}

func TestNew_TokenBucket(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{
		Algorithm: config.AlgorithmTokenBucket,
		Limit:     100,
		Window:    config.Duration(time.Minute),
		Burst:     10,
	}

	limiter, closer, err := New(context.Background(), cfg, "", nil)
	require.NoError(t, err)
	defer closer()

	assert.IsType(t, &TokenBucketLimiter{}, limiter)
}

func TestNew_DefaultsToFixedWindow(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{
		Limit:  10,
		Window: config.Duration(time.Minute),
	}

	limiter, closer, err := New(context.Background(), cfg, "", nil)
	require.NoError(t, err)
	defer closer()

	assert.IsType(t, &FixedWindowLimiter{}, limiter)
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{
		Algorithm: "leaky_bucket",
		Limit:     10,
		Window:    config.Duration(time.Minute),
	}

	_, _, err := New(context.Background(), cfg, "", nil)
	assert.Error(t, err)
}

func TestNew_UnknownStore(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{
		Algorithm: config.AlgorithmFixedWindow,
		Limit:     10,
		Window:    config.Duration(time.Minute),
		Store:     "etcd",
	}

	_, _, err := New(context.Background(), cfg, "", nil)
	assert.Error(t, err)
}
