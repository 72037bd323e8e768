// Package directory provides the surgeon directory: record storage,
// query validation, and distance-based search.
package directory

import "github.com/surgeonmatch/gateway/internal/geo"

// Surgeon is a directory record keyed by NPI. Records are read as
// immutable snapshots; the gateway never mutates them.
type Surgeon struct {
	NPI             string  `json:"npi" yaml:"npi"`
	Name            string  `json:"name" yaml:"name"`
	SpecialtyCode   string  `json:"specialtyCode" yaml:"specialtyCode"`
	Latitude        float64 `json:"latitude" yaml:"latitude"`
	Longitude       float64 `json:"longitude" yaml:"longitude"`
	ClaimVolume6mo  int     `json:"claimVolume6mo" yaml:"claimVolume6mo"`
	QualityScore    float64 `json:"qualityScore" yaml:"qualityScore"`
	AcceptsMedicare bool    `json:"acceptsMedicare" yaml:"acceptsMedicare"`
}

// Location returns the surgeon's coordinates.
func (s Surgeon) Location() geo.Point {
	return geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// ValidNPI reports whether s is a well-formed National Provider
// Identifier: exactly ten ASCII digits.
func ValidNPI(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
