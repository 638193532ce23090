package core

import (
	"fmt"
	"math"
)

// SensorSize is the physical sensor size in millimetres.
type SensorSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MarshalJSON writes the [width, height] pair used in artifact properties.
func (s SensorSize) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%g,%g]", s.Width, s.Height)), nil
}

// Valid reports whether both dimensions are usable for projection.
func (s SensorSize) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// ImageSize is the image resolution in pixels.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MarshalJSON writes the [width, height] pair used in artifact properties.
func (s ImageSize) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%d,%d]", s.Width, s.Height)), nil
}

// Zone identifies a UTM zone by number (1-60) and latitude band letter (C-X).
type Zone struct {
	Number int  `json:"number"`
	Letter byte `json:"letter"`
}

// Northern reports whether the band lies in the northern hemisphere.
func (z Zone) Northern() bool {
	return z.Letter >= 'N'
}

func (z Zone) String() string {
	return fmt.Sprintf("%d%c", z.Number, z.Letter)
}

// MarshalJSON writes the zone number only, matching the artifact "UTM Zone" property.
func (z Zone) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", fmt.Sprint(z.Number))), nil
}

// XY is a planar coordinate in metres.
type XY struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
}

// LatLon is a geographic coordinate in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ProjectedPoint is a point in a UTM zone.
type ProjectedPoint struct {
	X    float64
	Y    float64
	Zone Zone
}

// XY drops the zone.
func (p ProjectedPoint) XY() XY {
	return XY{X: p.X, Y: p.Y}
}

// Corner indexes into a footprint's vertex arrays.
type Corner int

// Vertex order is fixed for every footprint.
const (
	BottomLeft Corner = iota
	TopLeft
	TopRight
	BottomRight
)

// Footprint is the ground quadrilateral seen by one image.
// Projected is always set; Geographic only when HasGeographic is true.
type Footprint struct {
	Zone          Zone
	Projected     [4]XY
	Geographic    [4]LatLon
	HasGeographic bool
}

// CameraPose is everything the footprint geometry needs for one image.
type CameraPose struct {
	Latitude    float64
	Longitude   float64
	Height      float64 // above ground, metres
	Pitch       float64 // degrees, 0 = horizon, -90 = nadir
	Yaw         float64 // degrees, compass bearing
	FocalLength float64 // mm
	Sensor      SensorSize
	Image       ImageSize
}

// Validate checks the optics and orientation ranges required by the projection.
func (p CameraPose) Validate() error {
	switch {
	case math.IsNaN(p.Height) || p.Height <= 0:
		return Invalid("height", p.Height, "must be positive")
	case math.IsNaN(p.Pitch) || p.Pitch < -90 || p.Pitch > 0:
		return Invalid("pitch", p.Pitch, "must lie in [-90, 0] degrees")
	case math.IsNaN(p.Yaw) || math.IsInf(p.Yaw, 0):
		return Invalid("yaw", p.Yaw, "must be finite")
	case !(p.FocalLength > 0):
		return Invalid("focal length", p.FocalLength, "must be positive")
	case !p.Sensor.Valid():
		return Invalid("sensor size", p.Sensor, "both dimensions must be positive")
	case p.Image.Width <= 0 || p.Image.Height <= 0:
		return Invalid("image size", p.Image, "both dimensions must be positive")
	}
	return nil
}
