package directory

import (
	"context"
	"fmt"
	"sort"

	"github.com/surgeonmatch/gateway/internal/geo"
	"github.com/surgeonmatch/gateway/internal/observability"
)

// Result is one search hit with its computed distance from the query
// point.
type Result struct {
	Surgeon
	DistanceMiles float64 `json:"distanceMiles"`
}

// Service answers directory searches over a Store.
type Service struct {
	store       Store
	specialties SpecialtySet
	logger      observability.Logger
}

// ServiceOption is a functional option for the directory service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger observability.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSpecialties overrides the known specialty code set.
func WithSpecialties(specialties SpecialtySet) ServiceOption {
	return func(s *Service) {
		s.specialties = specialties
	}
}

// NewService creates a directory search service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		specialties: DefaultSpecialties(),
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates the query, filters the current record snapshot, and
// returns hits ordered by ascending distance with NPI as tie-breaker.
func (s *Service) Search(ctx context.Context, query Query) ([]Result, error) {
	if err := query.Validate(s.specialties); err != nil {
		return nil, err
	}

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load directory snapshot: %w", err)
	}

	origin := query.Origin()
	results := make([]Result, 0)
	for _, surgeon := range snapshot {
		if !query.Matches(surgeon) {
			continue
		}
		distance := geo.DistanceMiles(origin, surgeon.Location())
		if !geo.WithinRadius(distance, query.RadiusMiles) {
			continue
		}
		results = append(results, Result{Surgeon: surgeon, DistanceMiles: distance})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMiles != results[j].DistanceMiles {
			return results[i].DistanceMiles < results[j].DistanceMiles
		}
		return results[i].NPI < results[j].NPI
	})

	s.logger.Debug("directory search",
		observability.Float64("radiusMiles", query.RadiusMiles),
		observability.Int("matches", len(results)))

	return results, nil
}

// Lookup returns the record for an NPI, validating the identifier
// format first.
func (s *Service) Lookup(ctx context.Context, npi string) (Surgeon, error) {
	if !ValidNPI(npi) {
		verr := newFieldError("npi", fmt.Sprintf("malformed npi: %s", npi))
		return Surgeon{}, verr
	}
	return s.store.Get(ctx, npi)
}
