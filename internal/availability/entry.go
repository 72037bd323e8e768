// Package availability provides cached surgeon availability lookups in
// front of the upstream scheduling service, with per-key request
// collapsing so concurrent misses share one upstream call.
package availability

import (
	"fmt"
	"time"

	"github.com/surgeonmatch/gateway/internal/util"
)

// DateFormat is the wire format for requested dates.
const DateFormat = "2006-01-02"

// Key identifies one cache entry.
type Key struct {
	NPI           string
	RequestedDate string
}

// String returns the canonical key string used by stores.
func (k Key) String() string {
	return k.NPI + ":" + k.RequestedDate
}

// Entry is one cached availability result. A new fetch always
// supersedes a stale entry for the same key; entries are never merged.
type Entry struct {
	NPI           string    `json:"npi"`
	RequestedDate string    `json:"requestedDate"`
	Available     bool      `json:"available"`
	Notes         string    `json:"notes"`
	FetchedAt     time.Time `json:"fetchedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Key returns the cache key for the entry.
func (e Entry) Key() Key {
	return Key{NPI: e.NPI, RequestedDate: e.RequestedDate}
}

// Expired reports whether the entry is past its validity window.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// ParseDate validates a requested date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		verr := util.NewValidationError("invalid availability request")
		verr.AddField("requestedDate", fmt.Sprintf("malformed date %q, want YYYY-MM-DD", s))
		return time.Time{}, verr
	}
	return t, nil
}
