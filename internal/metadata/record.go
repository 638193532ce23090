// Package metadata normalises raw per-image metadata rows into core.ImageRecord values.
package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

// Record is one raw metadata row as produced by an extractor, keyed by tag name.
type Record map[string]string

// Exiftool tag names read by the resolver.
const (
	TagSourceFile       = "SourceFile"
	TagFileName         = "FileName"
	TagModel            = "Model"
	TagGPSLatitude      = "GPSLatitude"
	TagGPSLongitude     = "GPSLongitude"
	TagGPSLatitudeRef   = "GPSLatitudeRef"
	TagGPSLongitudeRef  = "GPSLongitudeRef"
	TagRelativeAltitude = "RelativeAltitude"
	TagGimbalPitch      = "GimbalPitchDegree"
	TagGimbalYaw        = "GimbalYawDegree"
	TagFlightYaw        = "FlightYawDegree"
	TagFocalLength      = "FocalLength"
	TagExifImageWidth   = "ExifImageWidth"
	TagExifImageHeight  = "ExifImageHeight"
	TagImageWidth       = "ImageWidth"
	TagImageHeight      = "ImageHeight"
	TagDateTimeOriginal = "DateTimeOriginal"
	TagUTCAtExposure    = "UTCAtExposure"
	TagFlightXSpeed     = "FlightXSpeed"
	TagFlightYSpeed     = "FlightYSpeed"
	TagFlightZSpeed     = "FlightZSpeed"
	TagSpeedX           = "SpeedX"
	TagSpeedY           = "SpeedY"
	TagSpeedZ           = "SpeedZ"
)

var numericPrefix = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)`)

// Get looks a tag up by exact name, then case-insensitively. Blank values and
// exiftool's "-" placeholder count as absent.
func (r Record) Get(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		for k, val := range r {
			if strings.EqualFold(k, key) {
				v, ok = val, true
				break
			}
		}
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" || v == "-" {
		return "", false
	}
	return v, true
}

// Has reports whether the tag is present and non-blank.
func (r Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// leadingFloat parses the numeric prefix of s, so "24.0 mm" is 24.
func leadingFloat(s string) (float64, bool) {
	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
