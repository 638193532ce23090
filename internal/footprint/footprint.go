// Package footprint projects a camera pose onto flat ground.
//
// The ground plane is the UTM zone of the camera. Distances are measured from the
// camera's nadir point along the viewing direction (K, forward) and across it
// (W, lateral), then rotated by the yaw bearing into easting/northing.
package footprint

import (
	"errors"
	"fmt"
	"math"

	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/pkg/core"
	"gonum.org/v1/gonum/mat"
)

// ErrHorizon is returned when the back edge of the image reaches the horizon,
// or comes close enough that a corner lands beyond MaxGroundRange.
var ErrHorizon = errors.New("footprint samples the horizon")

// MaxGroundRange is the furthest ground offset, in metres, that a corner may
// sit from the nadir point. Near the horizon the flat-ground model extrapolates
// corners tens of kilometres out, far beyond any usable footprint.
const MaxGroundRange = 100_000.0

// horizonPitchGuard replaces an internal pitch of exactly zero; tan(0) would
// otherwise divide by zero.
const horizonPitchGuard = 1.0

type options struct {
	projectedOnly bool
}

// Option tunes Calculate.
type Option func(*options)

// ProjectedOnly skips reprojection of the corners to latitude/longitude.
func ProjectedOnly() Option {
	return func(o *options) { o.projectedOnly = true }
}

// GroundDistances are the distances from the nadir point along the view axis and the
// half-widths of the frame at those distances, in metres.
type GroundDistances struct {
	Centre float64
	Front  float64
	Back   float64

	CentreHalfWidth float64
	FrontHalfWidth  float64
	BackHalfWidth   float64
}

// Distances computes the ground distances for a pose.
//
// The centre distance uses the same angle as the front edge, so Centre always equals
// Front. This is kept as-is; see DESIGN.md.
func Distances(pose core.CameraPose) (GroundDistances, error) {
	if err := pose.Validate(); err != nil {
		return GroundDistances{}, err
	}

	pitch := radians(-pose.Pitch)
	if pitch == 0 {
		pitch = horizonPitchGuard
	}

	ratXh := pose.Sensor.Width / pose.FocalLength / 2
	ratYh := pose.Sensor.Height / pose.FocalLength / 2
	phiYh := math.Atan(ratYh)

	backTan := math.Tan(pitch - phiYh)
	if backTan <= 0 {
		return GroundDistances{}, fmt.Errorf("pitch %.2f with half field of view %.2f: %w", pose.Pitch, degrees(phiYh), ErrHorizon)
	}

	h := pose.Height
	d := GroundDistances{
		Centre: h / math.Tan(pitch+phiYh),
		Front:  h / math.Tan(pitch+phiYh),
		Back:   h / backTan,
	}
	d.CentreHalfWidth = math.Hypot(h, d.Centre) * ratXh
	d.FrontHalfWidth = math.Hypot(h, d.Front) * ratXh
	d.BackHalfWidth = math.Hypot(h, d.Back) * ratXh

	for _, v := range []float64{d.Front, d.Back, d.FrontHalfWidth, d.BackHalfWidth} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return GroundDistances{}, ErrHorizon
		}
		if v > MaxGroundRange {
			return GroundDistances{}, fmt.Errorf("pitch %.4f puts a corner %.0f m out, beyond %.0f m: %w",
				pose.Pitch, v, MaxGroundRange, ErrHorizon)
		}
	}
	return d, nil
}

// Calculate returns the four ground corners of the image in the fixed order
// bottom-left, top-left, top-right, bottom-right.
func Calculate(pose core.CameraPose, opts ...Option) (core.Footprint, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d, err := Distances(pose)
	if err != nil {
		return core.Footprint{}, err
	}

	cam, err := geo.ToProjected(pose.Latitude, pose.Longitude)
	if err != nil {
		return core.Footprint{}, err
	}

	// columns follow the corner order; row 0 is lateral (W), row 1 forward (K)
	offsets := mat.NewDense(2, 4, []float64{
		d.FrontHalfWidth, d.BackHalfWidth, -d.BackHalfWidth, -d.FrontHalfWidth,
		d.Front, d.Back, d.Back, d.Front,
	})

	var ground mat.Dense
	ground.Mul(yawRotation(pose.Yaw), offsets)

	fp := core.Footprint{Zone: cam.Zone}
	for i := 0; i < 4; i++ {
		x := cam.X + ground.At(0, i)
		y := cam.Y + ground.At(1, i)
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return core.Footprint{}, ErrHorizon
		}
		fp.Projected[i] = core.XY{X: x, Y: y}
	}

	if o.projectedOnly {
		return fp, nil
	}

	for i, c := range fp.Projected {
		ll, err := geo.ToGeographic(core.ProjectedPoint{X: c.X, Y: c.Y, Zone: cam.Zone})
		if err != nil {
			return core.Footprint{}, fmt.Errorf("reprojecting corner %d: %w", i, err)
		}
		fp.Geographic[i] = ll
	}
	fp.HasGeographic = true

	return fp, nil
}

// Centre returns the projected ground point at the image centre.
func Centre(pose core.CameraPose) (core.ProjectedPoint, error) {
	d, err := Distances(pose)
	if err != nil {
		return core.ProjectedPoint{}, err
	}
	cam, err := geo.ToProjected(pose.Latitude, pose.Longitude)
	if err != nil {
		return core.ProjectedPoint{}, err
	}

	var centre mat.VecDense
	centre.MulVec(yawRotation(pose.Yaw), mat.NewVecDense(2, []float64{0, d.Centre}))
	return core.ProjectedPoint{X: cam.X + centre.AtVec(0), Y: cam.Y + centre.AtVec(1), Zone: cam.Zone}, nil
}

// yawRotation maps (W, K) offsets to (east, north) for a compass bearing.
func yawRotation(yaw float64) *mat.Dense {
	r := radians(yaw)
	sin, cos := math.Sincos(r)
	return mat.NewDense(2, 2, []float64{
		cos, sin,
		-sin, cos,
	})
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
