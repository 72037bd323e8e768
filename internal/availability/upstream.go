package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/util"
)

// Scheduler is the upstream scheduling collaborator.
type Scheduler interface {
	// CheckAvailability reports whether the surgeon can take a case on
	// the requested date, with free-text scheduling notes.
	CheckAvailability(ctx context.Context, npi, requestedDate string) (available bool, notes string, err error)
}

// schedulerResponse is the upstream wire format.
type schedulerResponse struct {
	Available bool   `json:"available"`
	Notes     string `json:"notes"`
}

// HTTPScheduler calls the scheduling service over HTTP, guarded by a
// circuit breaker so a dead upstream sheds load quickly instead of
// holding every request for the full timeout.
type HTTPScheduler struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  observability.Logger
}

// HTTPSchedulerOption is a functional option for the HTTP scheduler.
type HTTPSchedulerOption func(*HTTPScheduler)

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger observability.Logger) HTTPSchedulerOption {
	return func(s *HTTPScheduler) {
		s.logger = logger
	}
}

// WithSchedulerClient overrides the HTTP client.
func WithSchedulerClient(client *http.Client) HTTPSchedulerOption {
	return func(s *HTTPScheduler) {
		s.client = client
	}
}

// NewHTTPScheduler creates a scheduling client for the given base URL.
func NewHTTPScheduler(baseURL string, timeout time.Duration, breakerThreshold int, breakerCooldown time.Duration, opts ...HTTPSchedulerOption) *HTTPScheduler {
	s := &HTTPScheduler{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	threshold := uint32(1)
	if breakerThreshold > 0 {
		threshold = uint32(breakerThreshold)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scheduling",
		MaxRequests: threshold,
		Interval:    breakerCooldown,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.logger.Info("scheduling circuit breaker state change",
				observability.String("from", from.String()),
				observability.String("to", to.String()))
		},
	})

	return s
}

// CheckAvailability implements Scheduler.
func (s *HTTPScheduler) CheckAvailability(ctx context.Context, npi, requestedDate string) (bool, string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, npi, requestedDate)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, "", util.NewUpstreamError("availability", "circuit breaker open", err)
		}
		return false, "", err
	}

	resp := result.(*schedulerResponse)
	return resp.Available, resp.Notes, nil
}

func (s *HTTPScheduler) fetch(ctx context.Context, npi, requestedDate string) (*schedulerResponse, error) {
	endpoint := fmt.Sprintf("%s/availability?%s", s.baseURL, url.Values{
		"npi":  {npi},
		"date": {requestedDate},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build scheduling request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, util.NewUpstreamError("availability", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, util.NewUpstreamError("availability",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, util.NewUpstreamError("availability", "read response", err)
	}

	var decoded schedulerResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, util.NewUpstreamError("availability", "decode response", err)
	}
	return &decoded, nil
}
