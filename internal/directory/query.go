package directory

import (
	"fmt"

	"github.com/surgeonmatch/gateway/internal/geo"
	"github.com/surgeonmatch/gateway/internal/util"
)

// Query describes one directory search. Optional filters are pointers;
// nil means the filter is not applied.
type Query struct {
	Latitude        float64
	Longitude       float64
	RadiusMiles     float64
	SpecialtyCode   *string
	MinClaimVolume  *int
	AcceptsMedicare *bool
}

// Origin returns the query point.
func (q Query) Origin() geo.Point {
	return geo.Point{Latitude: q.Latitude, Longitude: q.Longitude}
}

// Validate rejects malformed queries before any filtering runs.
func (q Query) Validate(specialties SpecialtySet) error {
	verr := util.NewValidationError("invalid surgeon query")

	if !q.Origin().Valid() {
		verr.AddField("lat", fmt.Sprintf("coordinates out of range: (%v, %v)", q.Latitude, q.Longitude))
	}
	if q.RadiusMiles < 0 {
		verr.AddField("radiusMiles", "must be non-negative")
	}
	if q.SpecialtyCode != nil && !specialties.Contains(*q.SpecialtyCode) {
		verr.AddField("specialtyCode", fmt.Sprintf("unknown specialty code: %s", *q.SpecialtyCode))
	}
	if q.MinClaimVolume != nil && *q.MinClaimVolume < 0 {
		verr.AddField("minClaimVolume", "must be non-negative")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Matches reports whether the surgeon satisfies every non-distance
// filter. Filters are conjunctive.
func (q Query) Matches(s Surgeon) bool {
	if q.SpecialtyCode != nil && s.SpecialtyCode != *q.SpecialtyCode {
		return false
	}
	if q.MinClaimVolume != nil && s.ClaimVolume6mo < *q.MinClaimVolume {
		return false
	}
	if q.AcceptsMedicare != nil && s.AcceptsMedicare != *q.AcceptsMedicare {
		return false
	}
	return true
}
