// Package convert provides functions to convert GORM models to core models
package convert

import (
	"errors"
	"fmt"

	"github.com/dronemap/footprints/internal/model"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrNoPolygon is returned for rows whose footprint was unavailable.
var ErrNoPolygon = errors.New("footprint row has no polygon")

// FootprintGeometry parses the stored WKT polygon of a catalogue row.
func FootprintGeometry(row model.Footprint) (geom.Geometry, error) {
	if !row.PolygonWKT.Valid {
		return geom.Geometry{}, ErrNoPolygon
	}
	g, err := geom.UnmarshalWKT(row.PolygonWKT.String)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("footprint %d: %w", row.ID, err)
	}
	if g.Type() != geom.TypePolygon {
		return geom.Geometry{}, fmt.Errorf("footprint %d: stored %s, not a polygon", row.ID, g.Type())
	}
	return g, nil
}
