// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dronemap/footprints/internal/footprint"
	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/internal/metadata"
	"github.com/dronemap/footprints/internal/model"
	"github.com/dronemap/footprints/pkg/core"
	"gorm.io/datatypes"
)

// nullFloat maps an unavailable value to NULL.
func nullFloat(v core.Opt[float64]) sql.NullFloat64 {
	f, ok := v.Get()
	return sql.NullFloat64{Float64: f, Valid: ok}
}

func nullTime(v core.Opt[time.Time]) sql.NullTime {
	t, ok := v.Get()
	return sql.NullTime{Time: t.UTC(), Valid: ok}
}

// propertiesToJSON stores the artifact property map so catalogue rows match the GeoJSON output.
func propertiesToJSON(props map[string]any) (datatypes.JSON, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// CoreToShoot converts a core.Shoot to a GORM model.Shoot.
func CoreToShoot(s core.Shoot, runStart time.Time) model.Shoot {
	return model.Shoot{
		Name:       s.Name,
		Dir:        s.Dir,
		RelDir:     s.RelDir,
		RunStart:   runStart,
		ShootIndex: s.Index,
		ShootTotal: s.Total,
	}
}

// CoreToFootprint converts a recorded feature to a GORM model.Footprint row.
// The centre is only filled when the record still yields a projectable pose.
func CoreToFootprint(f core.Feature, shootID uint) (model.Footprint, error) {
	rec := f.Record
	props, err := propertiesToJSON(rec.Properties())
	if err != nil {
		return model.Footprint{}, fmt.Errorf("encoding properties of %s: %w", rec.FilePath, err)
	}

	row := model.Footprint{
		ShootID:    shootID,
		FilePath:   rec.FilePath,
		RelPath:    rec.RelPath,
		Sensor:     rec.Sensor,
		CapturedAt: nullTime(rec.UTCTime),
		Latitude:   nullFloat(rec.Latitude),
		Longitude:  nullFloat(rec.Longitude),
		Height:     nullFloat(rec.Height),
		GSD:        nullFloat(rec.GSD),
		Pitch:      nullFloat(rec.Pitch),
		Yaw:        nullFloat(rec.Yaw),
		Properties: props,
	}
	if z, ok := rec.Zone.Get(); ok {
		row.UTMZone = z.String()
	}

	fp, ok := f.Footprint.Get()
	if !ok {
		return row, nil
	}
	poly, err := geo.FootprintPolygon(fp)
	if err != nil {
		return model.Footprint{}, fmt.Errorf("polygon of %s: %w", rec.FilePath, err)
	}
	row.HasFootprint = true
	row.PolygonWKT = sql.NullString{String: poly.AsText(), Valid: true}
	row.AreaM2 = sql.NullFloat64{Float64: geo.FootprintArea(fp), Valid: true}

	if pose, ok := metadata.PoseFor(rec); ok {
		if c, err := footprint.Centre(pose); err == nil {
			row.CentreX = sql.NullFloat64{Float64: c.X, Valid: true}
			row.CentreY = sql.NullFloat64{Float64: c.Y, Valid: true}
		}
	}
	return row, nil
}
