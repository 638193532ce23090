package gormstorage

import (
	"testing"
	"time"

	"github.com/dronemap/footprints/internal/database"
	"github.com/dronemap/footprints/internal/footprint"
	"github.com/dronemap/footprints/internal/model"
	"github.com/dronemap/footprints/internal/model/convert"
	"github.com/dronemap/footprints/internal/storage"
	"github.com/dronemap/footprints/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	return newBatchedBackend(t, 0)
}

func newBatchedBackend(t *testing.T, batchSize int) *Backend {
	t.Helper()
	db, err := database.GetSqliteDBStandalone("")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	b := New(Dependencies{
		DB:        db,
		RunStart:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Version:   "test",
		BatchSize: batchSize,
	})
	require.NoError(t, b.Init())
	return b
}

func testFeature(t *testing.T, name string, withFootprint bool) *core.Feature {
	t.Helper()
	pose := core.CameraPose{
		Latitude:    -35,
		Longitude:   149,
		Height:      100,
		Pitch:       -90,
		FocalLength: 24,
		Sensor:      core.SensorSize{Width: 35.9, Height: 24},
		Image:       core.ImageSize{Width: 8192, Height: 5460},
	}
	rec := core.ImageRecord{
		FilePath:    "/in/flight/" + name,
		RelPath:     "flight/" + name,
		Latitude:    core.Some(pose.Latitude),
		Longitude:   core.Some(pose.Longitude),
		Zone:        core.Some(core.Zone{Number: 55, Letter: 'H'}),
		Sensor:      "ZenmuseP1",
		Height:      core.Some(pose.Height),
		Pitch:       core.Some(pose.Pitch),
		Yaw:         core.Some(pose.Yaw),
		FocalLength: core.Some(pose.FocalLength),
		SensorSize:  core.Some(pose.Sensor),
		ImageSize:   core.Some(pose.Image),
		GSD:         footprint.GSDForPose(pose),
	}
	if !withFootprint {
		rec.Pitch = core.NA[float64]()
		return &core.Feature{Footprint: core.NA[core.Footprint](), Record: rec}
	}
	fp, err := footprint.Calculate(pose)
	require.NoError(t, err)
	return &core.Feature{Footprint: core.Some(fp), Record: rec}
}

func TestInit_WithoutDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestInit_Migrates(t *testing.T) {
	b := newTestBackend(t)

	var infos []model.CatalogueInfo
	require.NoError(t, b.DB().Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "test", infos[0].Version)

	// a second run against the same catalogue keeps one info row
	require.NoError(t, b.Init())
	require.NoError(t, b.DB().Find(&infos).Error)
	assert.Len(t, infos, 1)
}

func TestRecordFeature_WithoutShoot(t *testing.T) {
	b := newTestBackend(t)
	assert.ErrorIs(t, b.RecordFeature(testFeature(t, "a.jpg", true)), ErrNoShoot)
	assert.ErrorIs(t, b.EndShoot(), ErrNoShoot)
}

func TestShootLifecycle(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartShoot(&core.Shoot{Dir: "/in/flight", RelDir: "flight", Name: "flight", Index: 1, Total: 1}))
	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0001.JPG", true)))
	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0002.JPG", true)))
	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0003.JPG", false)))

	// nothing is written before the shoot ends
	var count int64
	require.NoError(t, b.DB().Model(&model.Footprint{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, b.EndShoot())

	var shoots []model.Shoot
	require.NoError(t, b.DB().Find(&shoots).Error)
	require.Len(t, shoots, 1)
	s := shoots[0]
	assert.Equal(t, "flight", s.RelDir)
	assert.Equal(t, 3, s.ImageCount)
	assert.Equal(t, 2, s.FootprintCount)
	assert.True(t, s.Completed)
	assert.Greater(t, s.TotalAreaM2, 0.0)

	var rows []model.Footprint
	require.NoError(t, b.DB().Order("rel_path").Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, s.ID, r.ShootID)
	}
	assert.True(t, rows[0].HasFootprint)
	assert.InDelta(t, s.TotalAreaM2/2, rows[0].AreaM2.Float64, 1e-6)

	g, err := convert.FootprintGeometry(rows[0])
	require.NoError(t, err)
	assert.False(t, g.IsEmpty())

	assert.False(t, rows[2].HasFootprint)
	assert.False(t, rows[2].PolygonWKT.Valid)
	assert.False(t, rows[2].Pitch.Valid)
	_, err = convert.FootprintGeometry(rows[2])
	assert.ErrorIs(t, err, convert.ErrNoPolygon)
}

func TestClose_FlushesOpenShoot(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartShoot(&core.Shoot{Dir: "/in/flight", RelDir: "flight", Name: "flight", Index: 1, Total: 2}))
	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0001.JPG", true)))
	require.NoError(t, b.Close())

	var s model.Shoot
	require.NoError(t, b.DB().First(&s).Error)
	assert.Equal(t, 1, s.ImageCount)
	assert.False(t, s.Completed)

	// nothing left to flush
	require.NoError(t, b.Close())
}

func TestStartShoot_FlushesPrevious(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.StartShoot(&core.Shoot{RelDir: "a", Name: "a", Index: 1, Total: 2}))
	require.NoError(t, b.RecordFeature(testFeature(t, "a.jpg", true)))
	require.NoError(t, b.StartShoot(&core.Shoot{RelDir: "b", Name: "b", Index: 2, Total: 2}))
	require.NoError(t, b.RecordFeature(testFeature(t, "b.jpg", true)))
	require.NoError(t, b.EndShoot())

	var shoots []model.Shoot
	require.NoError(t, b.DB().Order("shoot_index").Find(&shoots).Error)
	require.Len(t, shoots, 2)
	assert.False(t, shoots[0].Completed)
	assert.Equal(t, 1, shoots[0].ImageCount)
	assert.True(t, shoots[1].Completed)
	assert.Equal(t, 1, shoots[1].ImageCount)
}

func TestRecordFeature_InsertsFullBatches(t *testing.T) {
	b := newBatchedBackend(t, 2)

	require.NoError(t, b.StartShoot(&core.Shoot{RelDir: "flight", Name: "flight", Total: 1}))
	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0001.JPG", true)))

	var count int64
	require.NoError(t, b.DB().Model(&model.Footprint{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0002.JPG", false)))
	require.NoError(t, b.DB().Model(&model.Footprint{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	require.NoError(t, b.RecordFeature(testFeature(t, "DJI_0003.JPG", true)))
	require.NoError(t, b.EndShoot())

	var s model.Shoot
	require.NoError(t, b.DB().First(&s).Error)
	assert.Equal(t, 3, s.ImageCount)
	assert.Equal(t, 2, s.FootprintCount)
	assert.True(t, s.Completed)
}
