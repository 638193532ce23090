package convert

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/dronemap/footprints/internal/footprint"
	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/internal/model"
	"github.com/dronemap/footprints/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPose() core.CameraPose {
	return core.CameraPose{
		Latitude:    -35,
		Longitude:   149,
		Height:      100,
		Pitch:       -90,
		Yaw:         0,
		FocalLength: 24,
		Sensor:      core.SensorSize{Width: 35.9, Height: 24},
		Image:       core.ImageSize{Width: 8192, Height: 5460},
	}
}

func testRecord(pose core.CameraPose) core.ImageRecord {
	zone := core.Zone{Number: 55, Letter: 'H'}
	return core.ImageRecord{
		FilePath:    "/in/flight/DJI_0001.JPG",
		RelPath:     "flight/DJI_0001.JPG",
		UTCTime:     core.Some(time.Date(2024, 6, 1, 2, 3, 4, 0, time.UTC)),
		Latitude:    core.Some(pose.Latitude),
		Longitude:   core.Some(pose.Longitude),
		Zone:        core.Some(zone),
		Sensor:      "ZenmuseP1",
		Height:      core.Some(pose.Height),
		Pitch:       core.Some(pose.Pitch),
		Yaw:         core.Some(pose.Yaw),
		FocalLength: core.Some(pose.FocalLength),
		SensorSize:  core.Some(pose.Sensor),
		ImageSize:   core.Some(pose.Image),
		GSD:         footprint.GSDForPose(pose),
	}
}

func TestCoreToShoot(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := CoreToShoot(core.Shoot{Dir: "/in/a", RelDir: "a", Name: "a", Index: 1, Total: 3}, start)
	assert.Equal(t, "a", s.Name)
	assert.Equal(t, "/in/a", s.Dir)
	assert.Equal(t, 1, s.ShootIndex)
	assert.Equal(t, 3, s.ShootTotal)
	assert.Equal(t, start, s.RunStart)
	assert.False(t, s.Completed)
}

func TestCoreToFootprint_WithGeometry(t *testing.T) {
	pose := testPose()
	fp, err := footprint.Calculate(pose)
	require.NoError(t, err)

	row, err := CoreToFootprint(core.Feature{Footprint: core.Some(fp), Record: testRecord(pose)}, 7)
	require.NoError(t, err)

	assert.Equal(t, uint(7), row.ShootID)
	assert.Equal(t, "55H", row.UTMZone)
	assert.True(t, row.HasFootprint)
	assert.True(t, row.CapturedAt.Valid)
	assert.Equal(t, sql.NullFloat64{Float64: 100, Valid: true}, row.Height)
	assert.InDelta(t, geo.FootprintArea(fp), row.AreaM2.Float64, 1e-9)

	centre, err := footprint.Centre(pose)
	require.NoError(t, err)
	assert.Equal(t, centre.X, row.CentreX.Float64)
	assert.Equal(t, centre.Y, row.CentreY.Float64)

	g, err := FootprintGeometry(row)
	require.NoError(t, err)
	assert.Equal(t, geom.TypePolygon, g.Type())

	var props map[string]any
	require.NoError(t, json.Unmarshal(row.Properties, &props))
	assert.Equal(t, "ZenmuseP1", props[core.PropSensor])
	assert.Equal(t, "55", props[core.PropZone])
}

func TestCoreToFootprint_Unavailable(t *testing.T) {
	rec := testRecord(testPose())
	rec.Pitch = core.NA[float64]()
	rec.GSD = core.NA[float64]()

	row, err := CoreToFootprint(core.Feature{Record: rec}, 1)
	require.NoError(t, err)
	assert.False(t, row.HasFootprint)
	assert.False(t, row.PolygonWKT.Valid)
	assert.False(t, row.AreaM2.Valid)
	assert.False(t, row.CentreX.Valid)
	assert.False(t, row.Pitch.Valid)
	assert.False(t, row.GSD.Valid)

	_, err = FootprintGeometry(row)
	assert.ErrorIs(t, err, ErrNoPolygon)
}

func TestFootprintGeometry_NotPolygon(t *testing.T) {
	row := model.Footprint{ID: 3, PolygonWKT: sql.NullString{String: "POINT(1 2)", Valid: true}}
	_, err := FootprintGeometry(row)
	assert.Error(t, err)

	row.PolygonWKT.String = "POLYGON(("
	_, err = FootprintGeometry(row)
	assert.Error(t, err)
}
