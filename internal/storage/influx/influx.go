// Package influxstorage writes per-image flight metrics and per-shoot totals
// to InfluxDB so runs can be charted over time.
package influxstorage

import (
	"sync"
	"time"

	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/internal/influx"
	"github.com/dronemap/footprints/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	MeasurementImage = "footprint_image"
	MeasurementShoot = "footprint_shoot"
)

// Backend implements storage.Backend on an influx.Manager.
type Backend struct {
	manager *influx.Manager
	connect func() error
	now     func() time.Time

	mu         sync.Mutex
	shoot      *core.Shoot
	started    time.Time
	images     int
	footprints int
	area       float64
}

// New creates a backend that connects the manager in Init.
func New(manager *influx.Manager, connect func() error) *Backend {
	return &Backend{manager: manager, connect: connect, now: time.Now}
}

func (b *Backend) Init() error {
	if b.connect == nil {
		return nil
	}
	return b.connect()
}

func (b *Backend) Close() error {
	return b.manager.Close()
}

func (b *Backend) StartShoot(s *core.Shoot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shoot = s
	b.started = b.now()
	b.images, b.footprints, b.area = 0, 0, 0
	return nil
}

// RecordFeature writes one point per image, timed at capture when known.
// Unavailable values are left out of the point.
func (b *Backend) RecordFeature(f *core.Feature) error {
	rec := f.Record
	point := influxdb2_write.NewPointWithMeasurement(MeasurementImage).
		AddField("has_footprint", f.Footprint.OK())
	if rec.Sensor != "" {
		point.AddTag("sensor", rec.Sensor)
	}

	b.mu.Lock()
	if b.shoot != nil {
		point.AddTag("shoot", b.shoot.RelDir)
	}
	b.images++
	if fp, ok := f.Footprint.Get(); ok {
		area := geo.FootprintArea(fp)
		point.AddField("area_m2", area)
		b.footprints++
		b.area += area
	}
	b.mu.Unlock()

	if z, ok := rec.Zone.Get(); ok {
		point.AddTag("utm_zone", z.String())
	}
	addOpt(point, "gsd_cm", rec.GSD)
	addOpt(point, "height_m", rec.Height)
	addOpt(point, "speed_ms", rec.Speed)
	addOpt(point, "pitch_deg", rec.Pitch)
	addOpt(point, "yaw_deg", rec.Yaw)

	point.SetTime(rec.UTCTime.Or(b.now()))
	return b.manager.WritePoint(point)
}

// EndShoot writes the shoot totals.
func (b *Backend) EndShoot() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shoot == nil {
		return nil
	}
	point := influxdb2_write.NewPointWithMeasurement(MeasurementShoot).
		AddTag("shoot", b.shoot.RelDir).
		AddField("images", b.images).
		AddField("footprints", b.footprints).
		AddField("area_m2", b.area).
		AddField("duration_s", b.now().Sub(b.started).Seconds()).
		SetTime(b.now())
	b.shoot = nil
	return b.manager.WritePoint(point)
}

func addOpt(p *influxdb2_write.Point, name string, v core.Opt[float64]) {
	if f, ok := v.Get(); ok {
		p.AddField(name, f)
	}
}
