package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/dronemap/footprints/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneFor(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"canberra", -35.3, 149.1, "55H"},
		{"equator greenwich", 0.5, 0.5, "31N"},
		{"just south of equator", -0.5, 0.5, "31M"},
		{"norway exception", 60, 5, "32V"},
		{"svalbard 33X", 78, 15, "33X"},
		{"svalbard 37X", 80, 40, "37X"},
		{"antimeridian", 10, 180, "60P"},
		{"band X stretched", 83.9, -40, "24X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := ZoneFor(tt.lat, tt.lon)
			require.NoError(t, err)
			assert.Equal(t, tt.want, z.String())
		})
	}
}

func TestZoneFor_OutOfRange(t *testing.T) {
	for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -180.5}, {math.NaN(), 0}, {85, 0}, {-81, 0}} {
		_, err := ZoneFor(c[0], c[1])
		require.Error(t, err, "lat=%v lon=%v", c[0], c[1])
		assert.True(t, errors.Is(err, core.ErrValidation))
		assert.True(t, errors.Is(err, ErrInvalidCoordinates))
	}
}

func TestToProjected_CentralMeridian(t *testing.T) {
	// zone 55 central meridian is 147E; false easting puts it at 500km
	p, err := ToProjected(-35, 147)
	require.NoError(t, err)

	assert.Equal(t, core.Zone{Number: 55, Letter: 'H'}, p.Zone)
	assert.InDelta(t, 500000, p.X, 1e-3)
	assert.Less(t, p.Y, 10000000.0)
	assert.Greater(t, p.Y, 6000000.0)
}

func TestToProjected_Equator(t *testing.T) {
	p, err := ToProjected(0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 500000, p.X, 1e-3)
	assert.InDelta(t, 0, p.Y, 1e-3)
}

func TestRoundTrip(t *testing.T) {
	points := []core.LatLon{
		{Lat: -35, Lon: 149},
		{Lat: -68.5804694, Lon: 77.9676},
		{Lat: 51.4779, Lon: -0.0015},
		{Lat: 40.7128, Lon: -74.006},
		{Lat: 1.3521, Lon: 103.8198},
		{Lat: -33.8688, Lon: 151.2093},
	}
	for _, pt := range points {
		p, err := ToProjected(pt.Lat, pt.Lon)
		require.NoError(t, err)

		back, err := ToGeographic(p)
		require.NoError(t, err)
		assert.InDelta(t, pt.Lat, back.Lat, 1e-6, "lat for %+v", pt)
		assert.InDelta(t, pt.Lon, back.Lon, 1e-6, "lon for %+v", pt)
	}
}

// Reprojected points must land back on the UTM input within a millimetre,
// including high latitudes where the inverse is least accurate.
func TestToGeographic_ForwardConsistent(t *testing.T) {
	points := []core.ProjectedPoint{
		{X: 500000, Y: 6126000, Zone: core.Zone{Number: 55, Letter: 'H'}},
		{X: 166000, Y: 1000000, Zone: core.Zone{Number: 31, Letter: 'P'}},
		{X: 520000, Y: 9200000, Zone: core.Zone{Number: 33, Letter: 'X'}},
		{X: 420000, Y: 1200000, Zone: core.Zone{Number: 43, Letter: 'C'}},
		{X: 745000, Y: 5000000, Zone: core.Zone{Number: 18, Letter: 'T'}},
	}
	for _, p := range points {
		ll, err := ToGeographic(p)
		require.NoError(t, err, "%+v", p)

		back, err := ToProjectedInZone(ll.Lat, ll.Lon, p.Zone)
		require.NoError(t, err, "%+v", p)
		assert.LessOrEqual(t, math.Hypot(back.X-p.X, back.Y-p.Y), inverseTolerance, "%+v", p)
	}
}

func TestToProjectedInZone_NeighbourZone(t *testing.T) {
	// 150.1E belongs to zone 56 but corners stay in the camera's zone 55
	zone := core.Zone{Number: 55, Letter: 'H'}
	p, err := ToProjectedInZone(-35, 150.1, zone)
	require.NoError(t, err)
	assert.Equal(t, zone, p.Zone)
	assert.Greater(t, p.X, 700000.0)

	back, err := ToGeographic(p)
	require.NoError(t, err)
	assert.InDelta(t, -35, back.Lat, 1e-6)
	assert.InDelta(t, 150.1, back.Lon, 1e-6)
}

func TestToGeographic_InvalidZone(t *testing.T) {
	_, err := ToGeographic(core.ProjectedPoint{X: 500000, Y: 0, Zone: core.Zone{Number: 0, Letter: 'N'}})
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = ToGeographic(core.ProjectedPoint{X: 500000, Y: 0, Zone: core.Zone{Number: 31, Letter: 'I'}})
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = ToGeographic(core.ProjectedPoint{X: math.Inf(1), Y: 0, Zone: core.Zone{Number: 31, Letter: 'N'}})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestZoneNorthern(t *testing.T) {
	assert.True(t, core.Zone{Number: 31, Letter: 'N'}.Northern())
	assert.True(t, core.Zone{Number: 31, Letter: 'X'}.Northern())
	assert.False(t, core.Zone{Number: 31, Letter: 'M'}.Northern())
	assert.False(t, core.Zone{Number: 55, Letter: 'H'}.Northern())
}
