package availability

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/util"
)

// failedLookupNotes is reported for batch elements whose upstream fetch
// failed.
const failedLookupNotes = "lookup failed"

// Cache is a cache-aside front for the scheduling upstream. Concurrent
// misses on the same (npi, requestedDate) collapse into one upstream
// call; the resolver runs to completion even when its original caller
// goes away, since the result is shared by every waiter.
type Cache struct {
	store        Store
	scheduler    Scheduler
	ttl          time.Duration
	retries      int
	retryBackoff time.Duration
	logger       observability.Logger
	metrics      *Metrics
	now          func() time.Time

	group singleflight.Group
}

// CacheOption is a functional option for the availability cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger.
func WithCacheLogger(logger observability.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithCacheMetrics sets the metrics collector.
func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithTTL overrides the entry time-to-live. Default is one hour.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithRetries sets the number of upstream retries after the first
// failed attempt. Default is one retry.
func WithRetries(retries int, backoff time.Duration) CacheOption {
	return func(c *Cache) {
		c.retries = retries
		c.retryBackoff = backoff
	}
}

// WithCacheClock overrides the time source. Test use only.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an availability cache over the given store and
// scheduler.
func NewCache(store Store, scheduler Scheduler, opts ...CacheOption) *Cache {
	c := &Cache{
		store:        store,
		scheduler:    scheduler,
		ttl:          time.Hour,
		retries:      1,
		retryBackoff: 100 * time.Millisecond,
		logger:       observability.NopLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the availability entry for (npi, requestedDate), fetching
// from the upstream on a miss. Callers that are cancelled while waiting
// detach with ctx.Err(); the in-flight fetch keeps going for the
// remaining waiters.
func (c *Cache) Get(ctx context.Context, npi, requestedDate string) (Entry, error) {
	key := Key{NPI: npi, RequestedDate: requestedDate}

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken cache store degrades to a miss rather than failing
		// the lookup.
		c.logger.Warn("availability store read failed",
			observability.String("npi", npi),
			observability.Error(err))
	}
	if ok {
		if c.metrics != nil {
			c.metrics.RecordHit()
		}
		return entry, nil
	}

	if c.metrics != nil {
		c.metrics.RecordMiss()
	}

	resolverCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		return c.resolve(resolverCtx, key)
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	}
}

// resolve performs the upstream fetch for one key, with bounded
// retries, and stores the result on success.
func (c *Cache) resolve(ctx context.Context, key Key) (Entry, error) {
	var (
		available bool
		notes     string
		err       error
	)

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Entry{}, ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		available, notes, err = c.scheduler.CheckAvailability(ctx, key.NPI, key.RequestedDate)
		if err == nil {
			break
		}

		c.logger.Warn("upstream availability fetch failed",
			observability.String("npi", key.NPI),
			observability.String("requestedDate", key.RequestedDate),
			observability.Int("attempt", attempt+1),
			observability.Error(err))
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamFailure()
		}
		return Entry{}, util.WrapError(err, "availability fetch exhausted retries")
	}

	now := c.now()
	entry := Entry{
		NPI:           key.NPI,
		RequestedDate: key.RequestedDate,
		Available:     available,
		Notes:         notes,
		FetchedAt:     now,
		ExpiresAt:     now.Add(c.ttl),
	}

	if storeErr := c.store.Set(ctx, entry); storeErr != nil {
		c.logger.Warn("availability store write failed",
			observability.String("npi", key.NPI),
			observability.Error(storeErr))
	}

	if c.metrics != nil {
		c.metrics.RecordUpstreamCall()
	}

	return entry, nil
}

// BatchResult is one element of a batch inquiry response.
type BatchResult struct {
	NPI       string `json:"npi"`
	Available bool   `json:"available"`
	Notes     string `json:"notes"`
}

// GetBatch resolves each NPI independently and in parallel for one
// requested date. A failed element reports available=false with
// failure notes; it never fails its siblings. Results preserve the
// input order.
func (c *Cache) GetBatch(ctx context.Context, npis []string, requestedDate string) []BatchResult {
	results := make([]BatchResult, len(npis))

	var wg sync.WaitGroup
	for i, npi := range npis {
		wg.Add(1)
		go func(i int, npi string) {
			defer wg.Done()

			entry, err := c.Get(ctx, npi, requestedDate)
			if err != nil {
				results[i] = BatchResult{
					NPI:       npi,
					Available: false,
					Notes:     failedLookupNotes,
				}
				return
			}
			results[i] = BatchResult{
				NPI:       npi,
				Available: entry.Available,
				Notes:     entry.Notes,
			}
		}(i, npi)
	}
	wg.Wait()

	return results
}
