package footprint

import (
	"errors"
	"math"
	"testing"

	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPose() core.CameraPose {
	return core.CameraPose{
		Latitude:    -35,
		Longitude:   149,
		Height:      50,
		Pitch:       -80,
		Yaw:         0,
		FocalLength: 24,
		Sensor:      core.SensorSize{Width: 35.9, Height: 24},
		Image:       core.ImageSize{Width: 4000, Height: 3000},
	}
}

func TestCalculate_Scenario(t *testing.T) {
	pose := testPose()

	gsd, ok := GSDForPose(pose).Get()
	require.True(t, ok)
	assert.Greater(t, gsd, 0.0)
	assert.Less(t, gsd, MaxGSD)

	fp, err := Calculate(pose)
	require.NoError(t, err)
	require.True(t, fp.HasGeographic)
	assert.Equal(t, core.Zone{Number: 55, Letter: 'H'}, fp.Zone)

	p := fp.Projected
	assert.False(t, segmentsCross(p[core.BottomLeft], p[core.TopLeft], p[core.TopRight], p[core.BottomRight]))
	assert.False(t, segmentsCross(p[core.TopLeft], p[core.TopRight], p[core.BottomRight], p[core.BottomLeft]))
	assert.Greater(t, geo.FootprintArea(fp), 0.0)

	_, err = geo.FootprintPolygon(fp)
	require.NoError(t, err)

	// the back edge is further ahead of the camera than the front edge
	cam, err := geo.ToProjected(pose.Latitude, pose.Longitude)
	require.NoError(t, err)
	assert.Greater(t, p[core.TopLeft].Y, cam.Y)
	assert.Less(t, p[core.BottomLeft].Y, p[core.TopLeft].Y)
}

func TestCalculate_SymmetricAtZeroYaw(t *testing.T) {
	computed := 0
	for pitch := -90.0; pitch <= 0; pitch += 5 {
		pose := testPose()
		pose.Pitch = pitch

		fp, err := Calculate(pose, ProjectedOnly())
		if errors.Is(err, ErrHorizon) {
			continue
		}
		require.NoError(t, err, "pitch %v", pitch)
		computed++

		cam, err := geo.ToProjected(pose.Latitude, pose.Longitude)
		require.NoError(t, err)

		p := fp.Projected
		assert.InDelta(t, p[core.BottomLeft].X-cam.X, -(p[core.BottomRight].X - cam.X), 1e-6, "pitch %v", pitch)
		assert.InDelta(t, p[core.TopLeft].X-cam.X, -(p[core.TopRight].X - cam.X), 1e-6, "pitch %v", pitch)
		assert.InDelta(t, p[core.BottomLeft].Y, p[core.BottomRight].Y, 1e-6, "pitch %v", pitch)
		assert.InDelta(t, p[core.TopLeft].Y, p[core.TopRight].Y, 1e-6, "pitch %v", pitch)
		assert.False(t, fp.HasGeographic)
	}
	assert.Greater(t, computed, 5)
}

func TestCalculate_YawRotatesOffsets(t *testing.T) {
	pose := testPose()
	north, err := Calculate(pose, ProjectedOnly())
	require.NoError(t, err)

	pose.Yaw = 90
	east, err := Calculate(pose, ProjectedOnly())
	require.NoError(t, err)

	cam, err := geo.ToProjected(pose.Latitude, pose.Longitude)
	require.NoError(t, err)

	for i := range north.Projected {
		dx0, dy0 := north.Projected[i].X-cam.X, north.Projected[i].Y-cam.Y
		dx1, dy1 := east.Projected[i].X-cam.X, east.Projected[i].Y-cam.Y
		assert.InDelta(t, dy0, dx1, 1e-6)
		assert.InDelta(t, -dx0, dy1, 1e-6)
	}
	assert.InDelta(t, geo.FootprintArea(north), geo.FootprintArea(east), 0.05)
}

func TestCalculate_ZeroPitchGuard(t *testing.T) {
	pose := testPose()
	pose.Pitch = 0

	fp, err := Calculate(pose, ProjectedOnly())
	require.NoError(t, err)
	for _, c := range fp.Projected {
		assert.False(t, math.IsNaN(c.X) || math.IsInf(c.X, 0))
		assert.False(t, math.IsNaN(c.Y) || math.IsInf(c.Y, 0))
	}
}

func TestCalculate_Horizon(t *testing.T) {
	pose := testPose()
	pose.Pitch = -10

	_, err := Calculate(pose)
	assert.ErrorIs(t, err, ErrHorizon)
}

// Just below the horizon the back edge lands thousands of kilometres out.
func TestCalculate_NearHorizonBeyondGroundRange(t *testing.T) {
	for _, pitch := range []float64{-26.566, -26.5651, -26.57} {
		pose := testPose()
		pose.Pitch = pitch
		pose.Yaw = 30

		_, err := Distances(pose)
		assert.ErrorIs(t, err, ErrHorizon, "pitch %v", pitch)
		_, err = Calculate(pose)
		assert.ErrorIs(t, err, ErrHorizon, "pitch %v", pitch)
		_, err = Centre(pose)
		assert.ErrorIs(t, err, ErrHorizon, "pitch %v", pitch)
	}

	// a few degrees further down the frame is back within range
	pose := testPose()
	pose.Pitch = -30
	d, err := Distances(pose)
	require.NoError(t, err)
	assert.LessOrEqual(t, d.Back, MaxGroundRange)
	assert.LessOrEqual(t, d.BackHalfWidth, MaxGroundRange)
}

func TestCalculate_InvalidPose(t *testing.T) {
	pose := testPose()
	pose.Pitch = 10
	_, err := Calculate(pose)
	assert.ErrorIs(t, err, core.ErrValidation)

	pose = testPose()
	pose.FocalLength = 0
	_, err = Calculate(pose)
	assert.ErrorIs(t, err, core.ErrValidation)

	pose = testPose()
	pose.Latitude = 88
	_, err = Calculate(pose)
	assert.Error(t, err)
}

func TestCalculate_GeographicMatchesProjected(t *testing.T) {
	fp, err := Calculate(testPose())
	require.NoError(t, err)

	for i, ll := range fp.Geographic {
		back, err := geo.ToProjectedInZone(ll.Lat, ll.Lon, fp.Zone)
		require.NoError(t, err)
		assert.InDelta(t, fp.Projected[i].X, back.X, 1e-3)
		assert.InDelta(t, fp.Projected[i].Y, back.Y, 1e-3)
	}
}

// The centre distance reuses the front edge angle.
func TestDistances_CentreEqualsFront(t *testing.T) {
	d, err := Distances(testPose())
	require.NoError(t, err)
	assert.Equal(t, d.Front, d.Centre)
	assert.Equal(t, d.FrontHalfWidth, d.CentreHalfWidth)
	assert.Greater(t, d.Back, d.Front)
	assert.Greater(t, d.BackHalfWidth, d.FrontHalfWidth)
}

func TestCentre(t *testing.T) {
	pose := testPose()
	c, err := Centre(pose)
	require.NoError(t, err)

	fp, err := Calculate(pose, ProjectedOnly())
	require.NoError(t, err)

	// on the front edge midpoint
	mid := (fp.Projected[core.BottomLeft].Y + fp.Projected[core.BottomRight].Y) / 2
	assert.InDelta(t, mid, c.Y, 1e-6)
	assert.Equal(t, fp.Zone, c.Zone)
}

func segmentsCross(a, b, c, d core.XY) bool {
	cross := func(o, p, q core.XY) float64 {
		return (p.X-o.X)*(q.Y-o.Y) - (p.Y-o.Y)*(q.X-o.X)
	}
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}
