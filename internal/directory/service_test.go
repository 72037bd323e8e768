package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgeonmatch/gateway/internal/geo"
	"github.com/surgeonmatch/gateway/internal/util"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()

	s := NewMemoryStore()
	s.Put(Surgeon{
		NPI:             "1234567890",
		Name:            "Dana Reyes",
		SpecialtyCode:   "208600000X",
		Latitude:        37.7749,
		Longitude:       -122.4194,
		ClaimVolume6mo:  120,
		QualityScore:    4.6,
		AcceptsMedicare: true,
	})
	s.Put(Surgeon{
		NPI:             "2345678901",
		Name:            "Morgan Lee",
		SpecialtyCode:   "207X00000X",
		Latitude:        37.8044,
		Longitude:       -122.2712,
		ClaimVolume6mo:  40,
		QualityScore:    4.1,
		AcceptsMedicare: true,
	})
	s.Put(Surgeon{
		NPI:             "3456789012",
		Name:            "Sam Ortiz",
		SpecialtyCode:   "208600000X",
		Latitude:        34.0522,
		Longitude:       -118.2437,
		ClaimVolume6mo:  200,
		QualityScore:    4.9,
		AcceptsMedicare: false,
	})
	return s
}

func TestService_Search_RadiusFilter(t *testing.T) {
	t.Parallel()

	svc := NewService(seedStore(t))

	// 50 miles around San Francisco covers Oakland but not Los Angeles.
	results, err := svc.Search(context.Background(), Query{
		Latitude:    37.7749,
		Longitude:   -122.4194,
		RadiusMiles: 50,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1234567890", results[0].NPI)
	assert.Equal(t, "2345678901", results[1].NPI)
	assert.Less(t, results[0].DistanceMiles, results[1].DistanceMiles)
}

func TestService_Search_BoundaryInclusion(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.Put(Surgeon{NPI: "1234567890", SpecialtyCode: "208600000X", Latitude: 37.8749, Longitude: -122.4194})
	svc := NewService(s)

	origin := geo.Point{Latitude: 37.7749, Longitude: -122.4194}
	exact := geo.DistanceMiles(origin, geo.Point{Latitude: 37.8749, Longitude: -122.4194})

	// Distance exactly at the radius is included.
	results, err := svc.Search(context.Background(), Query{
		Latitude:    origin.Latitude,
		Longitude:   origin.Longitude,
		RadiusMiles: exact,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// A slightly smaller radius excludes it.
	results, err = svc.Search(context.Background(), Query{
		Latitude:    origin.Latitude,
		Longitude:   origin.Longitude,
		RadiusMiles: exact - 1e-6,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_Search_RadiusZero(t *testing.T) {
	t.Parallel()

	svc := NewService(seedStore(t))
	ctx := context.Background()

	// Surgeon at the exact query point is included.
	results, err := svc.Search(ctx, Query{
		Latitude:    37.7749,
		Longitude:   -122.4194,
		RadiusMiles: 0,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1234567890", results[0].NPI)

	// A nearby surgeon is not.
	results, err = svc.Search(ctx, Query{
		Latitude:    37.7750,
		Longitude:   -122.4194,
		RadiusMiles: 0,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_Search_ConjunctiveFilters(t *testing.T) {
	t.Parallel()

	svc := NewService(seedStore(t))
	ctx := context.Background()

	tests := []struct {
		name     string
		query    Query
		expected []string
	}{
		{
			name: "specialty only",
			query: Query{
				Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 1000,
				SpecialtyCode: strPtr("208600000X"),
			},
			expected: []string{"1234567890", "3456789012"},
		},
		{
			name: "specialty and medicare",
			query: Query{
				Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 1000,
				SpecialtyCode:   strPtr("208600000X"),
				AcceptsMedicare: boolPtr(true),
			},
			expected: []string{"1234567890"},
		},
		{
			name: "min claim volume",
			query: Query{
				Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 1000,
				MinClaimVolume: intPtr(100),
			},
			expected: []string{"1234567890", "3456789012"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			results, err := svc.Search(ctx, tt.query)
			require.NoError(t, err)

			npis := make([]string, 0, len(results))
			for _, r := range results {
				npis = append(npis, r.NPI)
			}
			assert.Equal(t, tt.expected, npis)
		})
	}
}

func TestService_Search_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(seedStore(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
	}{
		{
			name:  "negative radius",
			query: Query{Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: -1},
		},
		{
			name: "negative min claim volume",
			query: Query{
				Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 5,
				MinClaimVolume: intPtr(-1),
			},
		},
		{
			name: "unknown specialty",
			query: Query{
				Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 5,
				SpecialtyCode: strPtr("999999999X"),
			},
		},
		{
			name:  "latitude out of range",
			query: Query{Latitude: 95, Longitude: -122.4194, RadiusMiles: 5},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.Search(ctx, tt.query)
			var verr *util.ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestService_Search_TieBreakByNPI(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	// Two surgeons at the same location.
	s.Put(Surgeon{NPI: "9876543210", SpecialtyCode: "208600000X", Latitude: 37.7749, Longitude: -122.4194})
	s.Put(Surgeon{NPI: "1234567890", SpecialtyCode: "208600000X", Latitude: 37.7749, Longitude: -122.4194})
	svc := NewService(s)

	results, err := svc.Search(context.Background(), Query{
		Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 1,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1234567890", results[0].NPI)
	assert.Equal(t, "9876543210", results[1].NPI)
}

func TestService_Lookup(t *testing.T) {
	t.Parallel()

	svc := NewService(seedStore(t))
	ctx := context.Background()

	surgeon, err := svc.Lookup(ctx, "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", surgeon.Name)

	_, err = svc.Lookup(ctx, "0000000000")
	assert.True(t, errors.Is(err, util.ErrNotFound))

	_, err = svc.Lookup(ctx, "not-an-npi")
	var verr *util.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestNewMemoryStoreFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "surgeons.yaml")

	content := `surgeons:
  - npi: "1234567890"
    name: Dana Reyes
    specialtyCode: 208600000X
    latitude: 37.7749
    longitude: -122.4194
    claimVolume6mo: 120
    qualityScore: 4.6
    acceptsMedicare: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := NewMemoryStoreFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())

	surgeon, err := s.Get(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", surgeon.Name)
}

func TestNewMemoryStoreFromFile_InvalidNPI(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "surgeons.yaml")

	content := `surgeons:
  - npi: "123"
    name: Bad Record
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewMemoryStoreFromFile(path)
	assert.Error(t, err)
}

func TestValidNPI(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidNPI("1234567890"))
	assert.False(t, ValidNPI("123456789"))
	assert.False(t, ValidNPI("12345678901"))
	assert.False(t, ValidNPI("12345678aX"))
}
