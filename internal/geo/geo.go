// Package geo provides great-circle distance math for location
// filtering.
package geo

import "math"

// EarthRadiusMiles is the mean radius of the Earth in miles.
const EarthRadiusMiles = 3958.8

// zeroEpsilon absorbs floating-point error when a radius of zero asks
// for an exact point match.
const zeroEpsilon = 1e-9

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the point lies within the valid coordinate
// ranges.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// DistanceMiles returns the haversine distance between two points in
// miles.
func DistanceMiles(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * EarthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether distance falls inside the given radius.
// A radius of zero means exact point match, within a small tolerance.
func WithinRadius(distance, radius float64) bool {
	if radius == 0 {
		return distance <= zeroEpsilon
	}
	return distance <= radius
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
