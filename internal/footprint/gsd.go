package footprint

import (
	"math"

	"github.com/dronemap/footprints/pkg/core"
)

// MaxGSD is the largest ground sample distance (cm) still considered meaningful.
// Larger values come from rays grazing the horizon at high off-nadir angles.
const MaxGSD = 9999.0

// GSD returns the ground sample distance in centimetres along the view axis.
// It is unavailable when any input is non-positive or the result is outside (0, MaxGSD].
func GSD(height, pitch, focalLength, sensorWidth float64, imageWidth int) core.Opt[float64] {
	if !(height > 0) || !(focalLength > 0) || !(sensorWidth > 0) || imageWidth <= 0 {
		return core.NA[float64]()
	}

	offNadir := radians(90 + pitch)
	distance := height / math.Cos(offNadir)
	gsd := 100 * distance * sensorWidth / (focalLength * float64(imageWidth))

	if math.IsNaN(gsd) || gsd <= 0 || gsd > MaxGSD {
		return core.NA[float64]()
	}
	return core.Some(gsd)
}

// GSDForPose is GSD with the inputs taken from a pose.
func GSDForPose(pose core.CameraPose) core.Opt[float64] {
	return GSD(pose.Height, pose.Pitch, pose.FocalLength, pose.Sensor.Width, pose.Image.Width)
}
