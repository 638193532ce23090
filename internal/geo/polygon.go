package geo

import (
	"math"

	"github.com/dronemap/footprints/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PolygonArea returns the planar area enclosed by the vertices using the shoelace
// formula over the closed ring. Vertices must be projected (metres); the result is
// in square metres and independent of winding.
func PolygonArea(vertices []core.XY) (float64, error) {
	n := len(vertices)
	if n < 3 {
		return 0, core.Invalid("polygon", n, "at least 3 vertices are required")
	}

	var sum float64
	for i := 0; i < n; i++ {
		a := vertices[i]
		b := vertices[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2, nil
}

// FootprintArea returns the ground area of a footprint in square metres.
func FootprintArea(fp core.Footprint) float64 {
	// four vertices can never be rejected
	area, _ := PolygonArea(fp.Projected[:])
	return area
}

// FootprintPolygon builds the geographic polygon of a footprint in lon/lat order
// with a closed ring.
func FootprintPolygon(fp core.Footprint) (geom.Polygon, error) {
	if !fp.HasGeographic {
		return geom.Polygon{}, core.Invalid("footprint", nil, "no geographic corners")
	}
	coords := make([]float64, 0, 10)
	for _, c := range fp.Geographic {
		coords = append(coords, c.Lon, c.Lat)
	}
	coords = append(coords, fp.Geographic[0].Lon, fp.Geographic[0].Lat)
	return ringPolygon(coords)
}

// ProjectedPolygon builds the polygon of a footprint in its UTM zone.
func ProjectedPolygon(fp core.Footprint) (geom.Polygon, error) {
	coords := make([]float64, 0, 10)
	for _, c := range fp.Projected {
		coords = append(coords, c.X, c.Y)
	}
	coords = append(coords, fp.Projected[0].X, fp.Projected[0].Y)
	return ringPolygon(coords)
}

func ringPolygon(coords []float64) (geom.Polygon, error) {
	ring, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, err
	}
	return geom.NewPolygon([]geom.LineString{ring})
}
