package ratelimit

import (
	"context"
	"fmt"

	"github.com/surgeonmatch/gateway/internal/config"
	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/ratelimit/store"
)

// New creates a rate limiter from gateway configuration. The returned
// closer releases the counter store and any background goroutines.
func New(ctx context.Context, cfg config.RateLimitConfig, redisURL string, logger observability.Logger) (Limiter, func() error, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Algorithm {
	case config.AlgorithmFixedWindow, "":
		s, err := newStore(ctx, cfg, redisURL, logger)
		if err != nil {
			return nil, nil, err
		}
		limiter := NewFixedWindowLimiter(s, cfg.Limit, cfg.Window.Duration(),
			WithFixedWindowLogger(logger),
			WithFixedWindowMetrics(GetMetrics()),
			WithFailOpen(cfg.FailOpen),
		)
		return limiter, s.Close, nil

	case config.AlgorithmTokenBucket:
		limiter := NewTokenBucketLimiter(cfg.Limit, cfg.Window.Duration(), cfg.Burst,
			WithTokenBucketLogger(logger),
			WithTokenBucketMetrics(GetMetrics()),
		)
		return limiter, limiter.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown rate limit algorithm: %s", cfg.Algorithm)
	}
}

// newStore creates the counter store named by the configuration.
func newStore(ctx context.Context, cfg config.RateLimitConfig, redisURL string, logger observability.Logger) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	case config.StoreRedis:
		s, err := store.NewRedisStoreFromURL(ctx, redisURL, store.WithRedisStoreLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create redis counter store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown rate limit store: %s", cfg.Store)
	}
}
