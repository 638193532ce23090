// Package geojson writes footprints as GeoJSON artifacts: one FeatureCollection
// per image, merged into one collection per shoot when the shoot ends.
package geojson

import (
	"fmt"

	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

const (
	typeFeature           = "Feature"
	typeFeatureCollection = "FeatureCollection"
)

// CRS is the legacy named coordinate reference member still read by desktop GIS.
type CRS struct {
	Type       string        `json:"type"`
	Properties CRSProperties `json:"properties"`
}

type CRSProperties struct {
	Name string `json:"name"`
}

// WGS84 names the geographic reference every artifact is written in.
var WGS84 = CRS{Type: "name", Properties: CRSProperties{Name: "epsg:4326"}}

// Feature is a GeoJSON feature whose geometry may be null.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   *geom.Geometry `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is the document stored in every artifact.
type FeatureCollection struct {
	Type     string    `json:"type"`
	CRS      *CRS      `json:"crs,omitempty"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features in a collection tagged with the WGS84 CRS.
func NewFeatureCollection(features ...Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	crs := WGS84
	return FeatureCollection{Type: typeFeatureCollection, CRS: &crs, Features: features}
}

// NewFeature converts a recorded feature. An unavailable footprint gives a null geometry.
func NewFeature(f *core.Feature) (Feature, error) {
	out := Feature{Type: typeFeature, Properties: f.Record.Properties()}

	fp, ok := f.Footprint.Get()
	if !ok {
		return out, nil
	}
	poly, err := geo.FootprintPolygon(fp)
	if err != nil {
		return Feature{}, fmt.Errorf("footprint of %s: %w", f.Record.FilePath, err)
	}
	g := poly.AsGeometry()
	out.Geometry = &g
	return out, nil
}
