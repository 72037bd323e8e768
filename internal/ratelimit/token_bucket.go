package ratelimit

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/surgeonmatch/gateway/internal/observability"
)

// Ensure TokenBucketLimiter implements io.Closer for proper resource cleanup
var _ io.Closer = (*TokenBucketLimiter)(nil)

// TokenBucketLimiter implements the token bucket rate limiting algorithm
// with an in-memory bucket per key. Tokens refill continuously at
// limit/window per second and each request consumes one token, which
// smooths bursts instead of cutting them at window edges.
// Implements io.Closer - call Close() when done to stop the background
// cleanup goroutine.
type TokenBucketLimiter struct {
	limit   int
	window  time.Duration
	burst   int
	logger  observability.Logger
	metrics *Metrics

	buckets sync.Map

	cleanupInterval time.Duration
	bucketTTL       time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// bucketEntry pairs a limiter with its last access time for cleanup.
type bucketEntry struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// TokenBucketOption is a functional option for the token bucket limiter.
type TokenBucketOption func(*TokenBucketLimiter)

// WithTokenBucketLogger sets the logger.
func WithTokenBucketLogger(logger observability.Logger) TokenBucketOption {
	return func(l *TokenBucketLimiter) {
		l.logger = logger
	}
}

// WithTokenBucketMetrics sets the metrics collector.
func WithTokenBucketMetrics(m *Metrics) TokenBucketOption {
	return func(l *TokenBucketLimiter) {
		l.metrics = m
	}
}

// WithBucketTTL overrides the idle bucket eviction settings.
func WithBucketTTL(cleanupInterval, ttl time.Duration) TokenBucketOption {
	return func(l *TokenBucketLimiter) {
		l.cleanupInterval = cleanupInterval
		l.bucketTTL = ttl
	}
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
// Starts a background cleanup goroutine to evict idle buckets.
func NewTokenBucketLimiter(limit int, window time.Duration, burst int, opts ...TokenBucketOption) *TokenBucketLimiter {
	if burst <= 0 {
		burst = limit
	}

	l := &TokenBucketLimiter{
		limit:           limit,
		window:          window,
		burst:           burst,
		logger:          observability.NopLogger(),
		cleanupInterval: 5 * time.Minute,
		bucketTTL:       10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.cleanupLoop()

	return l
}

// refillRate returns the token refill rate in tokens per second.
func (l *TokenBucketLimiter) refillRate() rate.Limit {
	return rate.Limit(float64(l.limit) / l.window.Seconds())
}

// bucket returns the bucket for key, creating it on first use.
func (l *TokenBucketLimiter) bucket(key string) *bucketEntry {
	if value, ok := l.buckets.Load(key); ok {
		return value.(*bucketEntry)
	}
	entry := &bucketEntry{
		limiter:  rate.NewLimiter(l.refillRate(), l.burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.buckets.LoadOrStore(key, entry)
	return actual.(*bucketEntry)
}

// Allow implements Limiter.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *TokenBucketLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	entry := l.bucket(key)

	entry.mu.Lock()
	entry.lastSeen = time.Now()
	allowed := entry.limiter.AllowN(time.Now(), n)
	tokens := entry.limiter.Tokens()
	entry.mu.Unlock()

	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	perToken := time.Duration(float64(time.Second) / float64(l.refillRate()))

	// Time until the bucket is full again.
	resetAfter := time.Duration((float64(l.burst) - tokens) * float64(perToken))
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		needed := float64(n) - tokens
		if needed > 0 {
			retryAfter = time.Duration(needed * float64(perToken))
		}
	}

	if l.metrics != nil {
		l.metrics.RecordDecision(allowed)
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.burst,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// GetLimit implements Limiter.
func (l *TokenBucketLimiter) GetLimit(key string) *Limit {
	return &Limit{
		Requests: l.limit,
		Window:   l.window,
		Burst:    l.burst,
	}
}

// Reset implements Limiter.
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.buckets.Delete(key)
	return nil
}

// cleanupLoop periodically evicts buckets idle longer than the TTL.
func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup(l.bucketTTL)
		case <-l.stopCleanup:
			return
		}
	}
}

// Cleanup removes buckets not used within maxAge.
func (l *TokenBucketLimiter) Cleanup(maxAge time.Duration) {
	now := time.Now()

	l.buckets.Range(func(key, value interface{}) bool {
		entry := value.(*bucketEntry)
		entry.mu.Lock()
		if now.Sub(entry.lastSeen) > maxAge {
			l.buckets.Delete(key)
		}
		entry.mu.Unlock()
		return true
	})
}

// Close stops the background cleanup goroutine. Safe to call multiple
// times.
func (l *TokenBucketLimiter) Close() error {
	l.cleanupOnce.Do(func() {
		close(l.stopCleanup)
	})
	return nil
}
