package core

import (
	"math"
	"time"
)

// Timestamp layouts written to artifact properties.
const (
	LocalTimeLayout = "2006-01-02 15:04:05"
	UTCTimeLayout   = "2006-01-02 15:04:05.999999Z07:00"
)

// Property names written on every feature.
const (
	PropFilePath   = "File Path"
	PropLocalTime  = "Datetime - local"
	PropUTCTime    = "Datetime - UTC"
	PropLatitude   = "Latitude"
	PropLongitude  = "Longitude"
	PropEasting    = "UTM Easting"
	PropNorthing   = "UTM Northing"
	PropZone       = "UTM Zone"
	PropSensor     = "Sensor"
	PropHeight     = "Height"
	PropGSD        = "GSD"
	PropSpeed      = "Speed"
	PropPitch      = "Pitch"
	PropYaw        = "Yaw"
	PropFocal      = "Focal Length"
	PropSensorDims = "Sensor Dimensions"
	PropImageDims  = "Image Dimensions"
)

// ImageRecord is the normalised metadata of one source image.
type ImageRecord struct {
	FilePath string
	RelPath  string // relative to the run's input root, slash separated

	LocalTime Opt[time.Time] // wall clock, no zone
	UTCTime   Opt[time.Time]

	Latitude  Opt[float64]
	Longitude Opt[float64]
	Easting   Opt[float64]
	Northing  Opt[float64]
	Zone      Opt[Zone]

	Sensor      string // camera model, NAString when absent
	Height      Opt[float64]
	GSD         Opt[float64] // centimetres
	Speed       Opt[float64] // metres per second
	Pitch       Opt[float64]
	Yaw         Opt[float64]
	FocalLength Opt[float64]
	SensorSize  Opt[SensorSize]
	ImageSize   Opt[ImageSize]
}

// Properties returns the artifact property map for the record.
func (r ImageRecord) Properties() map[string]any {
	return map[string]any{
		PropFilePath:   r.FilePath,
		PropLocalTime:  formatTime(r.LocalTime, LocalTimeLayout),
		PropUTCTime:    formatTime(r.UTCTime, UTCTimeLayout),
		PropLatitude:   r.Latitude,
		PropLongitude:  r.Longitude,
		PropEasting:    r.Easting,
		PropNorthing:   r.Northing,
		PropZone:       r.Zone,
		PropSensor:     r.Sensor,
		PropHeight:     r.Height,
		PropGSD:        Round(r.GSD, 3),
		PropSpeed:      Round(r.Speed, 3),
		PropPitch:      r.Pitch,
		PropYaw:        r.Yaw,
		PropFocal:      r.FocalLength,
		PropSensorDims: r.SensorSize,
		PropImageDims:  r.ImageSize,
	}
}

func formatTime(t Opt[time.Time], layout string) string {
	v, ok := t.Get()
	if !ok {
		return NAString
	}
	return v.Format(layout)
}

// Round rounds an available value to the given number of decimals.
func Round(v Opt[float64], decimals int) Opt[float64] {
	f, ok := v.Get()
	if !ok {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return Some(math.Round(f*p) / p)
}

// Feature is one image's footprint plus its record, the unit written to artifacts.
type Feature struct {
	Footprint Opt[Footprint]
	Record    ImageRecord
}

// Shoot is one directory of images processed as a unit.
type Shoot struct {
	Dir    string `json:"dir"`    // absolute path
	RelDir string `json:"relDir"` // relative to the input root, "." for the root itself
	Name   string `json:"name"`
	Index  int    `json:"index"` // zero based
	Total  int    `json:"total"`
}
