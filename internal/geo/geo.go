package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/dronemap/footprints/pkg/core"
	"github.com/wroge/wgs84"
	"gonum.org/v1/gonum/mat"
)

// UTM POINTS
// Footprint geometry is computed in the UTM zone of the camera, so distances in metres
// can be used directly. Every corner of a footprint is projected and reprojected in that
// same zone, even when the corner itself falls in the neighbouring zone.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// UTM latitude bands, 8 degrees each from 80S; X is stretched to 84N.
const bandLetters = "CDEFGHJKLMNPQRSTUVWX"

const (
	epsgLonLat   = 4326
	epsgUTMNorth = 32600
	epsgUTMSouth = 32700
)

var epsg = wgs84.EPSG()

// The library's inverse transverse Mercator drifts by metres in latitude while
// its forward transform is accurate, so inverse results are refined against
// the forward transform until they agree within inverseTolerance metres.
const (
	inverseTolerance = 1e-3
	inverseMaxSteps  = 6
	inverseStepDeg   = 1e-6
)

// ValidateLatLon rejects positions outside [-90,90] / [-180,180].
func ValidateLatLon(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &core.ValidationError{Field: "latitude", Value: lat, Reason: "must lie in [-90, 90]", Err: ErrInvalidCoordinates}
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return &core.ValidationError{Field: "longitude", Value: lon, Reason: "must lie in [-180, 180]", Err: ErrInvalidCoordinates}
	}
	return nil
}

// ZoneFor returns the UTM zone containing the position.
func ZoneFor(lat, lon float64) (core.Zone, error) {
	if err := ValidateLatLon(lat, lon); err != nil {
		return core.Zone{}, err
	}
	if lat < -80 || lat > 84 {
		return core.Zone{}, &core.ValidationError{Field: "latitude", Value: lat, Reason: "outside UTM coverage [-80, 84]", Err: ErrInvalidCoordinates}
	}

	band := int((lat + 80) / 8)
	if band >= len(bandLetters) {
		band = len(bandLetters) - 1
	}
	letter := bandLetters[band]

	number := int((lon+180)/6) + 1
	if number > 60 {
		number = 60
	}

	// Norway
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		number = 32
	}
	// Svalbard
	if lat >= 72 && lon >= 0 && lon < 42 {
		switch {
		case lon < 9:
			number = 31
		case lon < 21:
			number = 33
		case lon < 33:
			number = 35
		default:
			number = 37
		}
	}

	return core.Zone{Number: number, Letter: letter}, nil
}

func validateZone(z core.Zone) error {
	if z.Number < 1 || z.Number > 60 {
		return core.Invalid("utm zone", z.Number, "must lie in [1, 60]")
	}
	for i := 0; i < len(bandLetters); i++ {
		if bandLetters[i] == z.Letter {
			return nil
		}
	}
	return core.Invalid("utm band", string(z.Letter), "unknown latitude band")
}

func epsgCode(z core.Zone) int {
	if z.Northern() {
		return epsgUTMNorth + z.Number
	}
	return epsgUTMSouth + z.Number
}

// ToProjected converts a geographic position to UTM in its own zone.
func ToProjected(lat, lon float64) (core.ProjectedPoint, error) {
	zone, err := ZoneFor(lat, lon)
	if err != nil {
		return core.ProjectedPoint{}, err
	}
	return ToProjectedInZone(lat, lon, zone)
}

// ToProjectedInZone converts a geographic position to UTM in a forced zone.
func ToProjectedInZone(lat, lon float64, zone core.Zone) (core.ProjectedPoint, error) {
	if err := ValidateLatLon(lat, lon); err != nil {
		return core.ProjectedPoint{}, err
	}
	if err := validateZone(zone); err != nil {
		return core.ProjectedPoint{}, err
	}

	f := epsg.Transform(epsgLonLat, epsgCode(zone))
	x, y, _ := f(lon, lat, 0)
	if !finite(x) || !finite(y) {
		return core.ProjectedPoint{}, fmt.Errorf("projecting %f,%f into zone %s: %w", lat, lon, zone, ErrInvalidCoordinates)
	}
	return core.ProjectedPoint{X: x, Y: y, Zone: zone}, nil
}

// ToGeographic converts a UTM point back to latitude and longitude.
func ToGeographic(p core.ProjectedPoint) (core.LatLon, error) {
	if err := validateZone(p.Zone); err != nil {
		return core.LatLon{}, err
	}
	if !finite(p.X) || !finite(p.Y) {
		return core.LatLon{}, core.Invalid("utm coordinates", p.XY(), "must be finite")
	}

	code := epsgCode(p.Zone)
	lon, lat, _ := epsg.Transform(code, epsgLonLat)(p.X, p.Y, 0)
	if !finite(lat) || !finite(lon) {
		return core.LatLon{}, fmt.Errorf("reprojecting %f,%f from zone %s: %w", p.X, p.Y, p.Zone, ErrInvalidCoordinates)
	}

	lat, lon, err := refineInverse(epsg.Transform(epsgLonLat, code), p.X, p.Y, lat, lon)
	if err != nil {
		return core.LatLon{}, fmt.Errorf("reprojecting %f,%f from zone %s: %w", p.X, p.Y, p.Zone, err)
	}
	return core.LatLon{Lat: lat, Lon: lon}, nil
}

// refineInverse runs Newton steps on the forward transform, with a
// finite-difference Jacobian, starting from the approximate lat/lon.
func refineInverse(forward wgs84.Func, x, y, lat, lon float64) (float64, float64, error) {
	for range inverseMaxSteps {
		fx, fy, _ := forward(lon, lat, 0)
		rx, ry := x-fx, y-fy
		if math.Hypot(rx, ry) <= inverseTolerance {
			return lat, lon, nil
		}

		xLon, yLon, _ := forward(lon+inverseStepDeg, lat, 0)
		xLat, yLat, _ := forward(lon, lat+inverseStepDeg, 0)
		jac := mat.NewDense(2, 2, []float64{
			(xLon - fx) / inverseStepDeg, (xLat - fx) / inverseStepDeg,
			(yLon - fy) / inverseStepDeg, (yLat - fy) / inverseStepDeg,
		})
		var step mat.VecDense
		if err := step.SolveVec(jac, mat.NewVecDense(2, []float64{rx, ry})); err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
		}
		lon += step.AtVec(0)
		lat += step.AtVec(1)
		if !finite(lat) || !finite(lon) {
			return 0, 0, ErrInvalidCoordinates
		}
	}

	fx, fy, _ := forward(lon, lat, 0)
	if math.Hypot(x-fx, y-fy) > inverseTolerance {
		return 0, 0, fmt.Errorf("inverse did not converge: %w", ErrInvalidCoordinates)
	}
	return lat, lon, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
