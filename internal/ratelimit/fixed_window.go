package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/ratelimit/store"
)

// FixedWindowLimiter implements the fixed window rate limiting algorithm.
// Time is divided into consecutive windows of fixed length and requests
// are counted per key per window. Every request is recorded against the
// window counter, including rejected ones, so a client that keeps
// retrying during a busy window gains no head start on the next one.
type FixedWindowLimiter struct {
	store    store.Store
	limit    int
	window   time.Duration
	failOpen bool
	logger   observability.Logger
	metrics  *Metrics
	now      func() time.Time
}

// FixedWindowOption is a functional option for the fixed window limiter.
type FixedWindowOption func(*FixedWindowLimiter)

// WithFixedWindowLogger sets the logger.
func WithFixedWindowLogger(logger observability.Logger) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		l.logger = logger
	}
}

// WithFixedWindowMetrics sets the metrics collector.
func WithFixedWindowMetrics(m *Metrics) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		l.metrics = m
	}
}

// WithFailOpen controls behavior when the counter store is unreachable.
// When true, requests are admitted during a store outage. The default
// is fail closed: outages reject requests rather than void the quota.
func WithFailOpen(failOpen bool) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		l.failOpen = failOpen
	}
}

// withClock overrides the time source. Test use only.
func withClock(now func() time.Time) FixedWindowOption {
	return func(l *FixedWindowLimiter) {
		l.now = now
	}
}

// NewFixedWindowLimiter creates a new fixed window rate limiter backed
// by the given counter store.
func NewFixedWindowLimiter(s store.Store, limit int, window time.Duration, opts ...FixedWindowOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		store:  s,
		limit:  limit,
		window: window,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements Limiter.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *FixedWindowLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	now := l.now()
	windowStart := l.windowStart(now)
	windowKey := l.windowKey(key, windowStart)

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	// Counter expiry outlives the window slightly so late readers in
	// the same window still see it.
	expiration := l.window + time.Second

	newCount, err := l.store.IncrementWithExpiry(ctx, windowKey, int64(n), expiration)
	if err != nil {
		l.logger.Warn("rate limit store unavailable",
			observability.String("key", key),
			observability.Bool("failOpen", l.failOpen),
			observability.Error(err))
		if l.metrics != nil {
			l.metrics.RecordStoreError()
		}
		return l.outageResult(resetAfter), nil
	}

	allowed := newCount <= int64(l.limit)

	remaining := l.limit - int(newCount)
	if remaining < 0 {
		remaining = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	if l.metrics != nil {
		l.metrics.RecordDecision(allowed)
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// outageResult builds the decision applied when the store cannot be
// reached. The quota state is unknown, so Remaining is reported as zero
// either way.
func (l *FixedWindowLimiter) outageResult(resetAfter time.Duration) *Result {
	if l.metrics != nil {
		l.metrics.RecordDecision(l.failOpen)
	}
	r := &Result{
		Allowed:    l.failOpen,
		Limit:      l.limit,
		Remaining:  0,
		ResetAfter: resetAfter,
	}
	if !l.failOpen {
		r.RetryAfter = resetAfter
	}
	return r
}

// windowStart returns the start of the window containing t.
func (l *FixedWindowLimiter) windowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

// windowKey derives the store key for a principal in a given window.
func (l *FixedWindowLimiter) windowKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s:fw:%d", key, windowStart.UnixNano())
}

// GetLimit implements Limiter.
func (l *FixedWindowLimiter) GetLimit(key string) *Limit {
	return &Limit{
		Requests: l.limit,
		Window:   l.window,
		Burst:    l.limit,
	}
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	windowStart := l.windowStart(l.now())
	if err := l.store.Delete(ctx, l.windowKey(key, windowStart)); err != nil {
		return fmt.Errorf("reset window counter: %w", err)
	}
	return nil
}
