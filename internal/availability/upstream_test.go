package availability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgeonmatch/gateway/internal/util"
)

func TestHTTPScheduler_CheckAvailability(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234567890", r.URL.Query().Get("npi"))
		assert.Equal(t, "2026-09-15", r.URL.Query().Get("date"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"available": true, "notes": "morning slot"}`))
	}))
	defer srv.Close()

	s := NewHTTPScheduler(srv.URL, time.Second, 5, time.Minute)

	available, notes, err := s.CheckAvailability(context.Background(), "1234567890", "2026-09-15")
	require.NoError(t, err)
	assert.True(t, available)
	assert.Equal(t, "morning slot", notes)
}

func TestHTTPScheduler_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPScheduler(srv.URL, time.Second, 100, time.Minute)

	_, _, err := s.CheckAvailability(context.Background(), "1234567890", "2026-09-15")
	assert.True(t, errors.Is(err, util.ErrUpstreamUnavail))
}

func TestHTTPScheduler_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	s := NewHTTPScheduler(srv.URL, 10*time.Millisecond, 100, time.Minute)

	_, _, err := s.CheckAvailability(context.Background(), "1234567890", "2026-09-15")
	assert.True(t, errors.Is(err, util.ErrUpstreamUnavail))
}

func TestHTTPScheduler_BreakerOpens(t *testing.T) {
	t.Parallel()

	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPScheduler(srv.URL, time.Second, 2, time.Minute)
	ctx := context.Background()

	// Trip the breaker with consecutive failures.
	for i := 0; i < 5; i++ {
		_, _, _ = s.CheckAvailability(ctx, "1234567890", "2026-09-15")
	}

	before := atomic.LoadInt64(&calls)
	_, _, err := s.CheckAvailability(ctx, "1234567890", "2026-09-15")
	assert.True(t, errors.Is(err, util.ErrUpstreamUnavail))
	// The open breaker short-circuits without hitting the upstream.
	assert.Equal(t, before, atomic.LoadInt64(&calls))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	parsed, err := ParseDate("2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())

	_, err = ParseDate("09/15/2026")
	var verr *util.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = ParseDate("")
	assert.Error(t, err)
}
