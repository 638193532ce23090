package metadata

import (
	"fmt"
	"math"
	"time"

	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/pkg/core"
)

// Capture time layouts as written by DJI cameras.
const (
	exifTimeLayout = "2006:01:02 15:04:05"
	isoTimeLayout  = "2006-01-02T15:04:05"
)

// Diagnostic records one field that could not be derived for an image.
type Diagnostic struct {
	Image  string
	Field  string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s unavailable (%s)", d.Image, d.Field, d.Reason)
}

// Overrides are the manual values a caller may force for a whole run.
type Overrides struct {
	Height core.Opt[float64]
	Pitch  core.Opt[float64]
	Sensor core.Opt[core.SensorSize]
}

// Defaults carry the run-wide values for height, pitch and sensor size. Each field
// starts from its override; when there is none, the first available value read
// from an image fills it and is reused for every later image of the run.
//
// The lock happens on the first image that carries the value, not strictly on
// the first image of the run. A leading image missing the tag would otherwise
// leave the field unset for the whole run, and every later image would fall
// back to its own reading instead of one shared value.
type Defaults struct {
	Height core.Opt[float64]
	Pitch  core.Opt[float64]
	Sensor core.Opt[core.SensorSize]
}

// NewDefaults seeds run defaults from manual overrides.
func NewDefaults(o Overrides) Defaults {
	return Defaults(o)
}

// Resolver turns raw records into image records.
type Resolver struct {
	sensors   SensorTable
	yawFields YawFieldTable
	locator   TimezoneLocator
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSensorTable replaces the sensor lookup table.
func WithSensorTable(t SensorTable) Option {
	return func(r *Resolver) { r.sensors = t }
}

// WithYawFields replaces the yaw tag selection table.
func WithYawFields(t YawFieldTable) Option {
	return func(r *Resolver) { r.yawFields = t }
}

// WithTimezoneLocator replaces the timezone lookup used to derive UTC capture times.
func WithTimezoneLocator(l TimezoneLocator) Option {
	return func(r *Resolver) { r.locator = l }
}

// NewResolver creates a resolver with the built-in tables and offline timezone lookup.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		sensors:   DefaultSensorTable(),
		yawFields: DefaultYawFieldTable(),
		locator:   LatLongLocator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sensors returns the resolver's sensor table.
func (r *Resolver) Sensors() SensorTable {
	return r.sensors
}

type resolution struct {
	image string
	raw   Record
	diags []Diagnostic
}

func (s *resolution) missing(field, reason string) {
	s.diags = append(s.diags, Diagnostic{Image: s.image, Field: field, Reason: reason})
}

// tagReason explains why a chain over the given tags yielded nothing.
func (s *resolution) tagReason(tags ...string) string {
	for _, t := range tags {
		if s.raw.Has(t) {
			return fmt.Sprintf("malformed %s", t)
		}
	}
	if len(tags) == 1 {
		return fmt.Sprintf("no %s tag", tags[0])
	}
	return fmt.Sprintf("none of %v present", tags)
}

// Resolve derives every field of one image independently. It returns the record,
// the defaults to use for the next image, and a diagnostic per unavailable field.
func (r *Resolver) Resolve(raw Record, defaults Defaults) (core.ImageRecord, Defaults, []Diagnostic) {
	path, _ := raw.Get(TagSourceFile)
	if path == "" {
		path, _ = raw.Get(TagFileName)
	}
	s := &resolution{image: path, raw: raw}
	rec := core.ImageRecord{FilePath: path, Sensor: core.NAString}

	model, hasModel := raw.Get(TagModel)
	if hasModel {
		rec.Sensor = model
	} else {
		s.missing(core.PropSensor, "no Model tag")
	}

	r.resolvePosition(s, &rec)

	rec.Height = FirstOf(Fixed(defaults.Height), Float(TagRelativeAltitude)).Resolve(raw)
	if !rec.Height.OK() {
		s.missing(core.PropHeight, s.tagReason(TagRelativeAltitude))
	} else if !defaults.Height.OK() {
		defaults.Height = rec.Height
	}

	rec.Pitch = FirstOf(Fixed(defaults.Pitch), Float(TagGimbalPitch)).Resolve(raw)
	if !rec.Pitch.OK() {
		s.missing(core.PropPitch, s.tagReason(TagGimbalPitch))
	} else if !defaults.Pitch.OK() {
		defaults.Pitch = rec.Pitch
	}

	yawTag := r.yawFields.Field(model)
	rec.Yaw = Float(yawTag)(raw)
	if !rec.Yaw.OK() {
		s.missing(core.PropYaw, s.tagReason(yawTag))
	}

	rec.FocalLength = Float(TagFocalLength)(raw)
	if !rec.FocalLength.OK() {
		s.missing(core.PropFocal, s.tagReason(TagFocalLength))
	}

	rec.SensorSize = FirstOf(Fixed(defaults.Sensor), r.sensorLookup(model)).Resolve(raw)
	if !rec.SensorSize.OK() {
		switch size, known := r.sensors.Lookup(model); {
		case !hasModel:
			s.missing(core.PropSensorDims, "no Model tag")
		case known && !size.Valid():
			s.missing(core.PropSensorDims, fmt.Sprintf("sensor size of %s is not known", model))
		default:
			s.missing(core.PropSensorDims, fmt.Sprintf("model %s not in sensor table", model))
		}
	} else if !defaults.Sensor.OK() {
		defaults.Sensor = rec.SensorSize
	}

	rec.ImageSize = imageSize(raw)
	if !rec.ImageSize.OK() {
		s.missing(core.PropImageDims, s.tagReason(TagExifImageWidth, TagImageWidth))
	}

	r.resolveTimes(s, &rec)

	rec.Speed = speed(raw)
	if !rec.Speed.OK() {
		s.missing(core.PropSpeed, "axis speeds incomplete")
	}

	return rec, defaults, s.diags
}

func (r *Resolver) resolvePosition(s *resolution, rec *core.ImageRecord) {
	lat := FirstOf(DMS(TagGPSLatitude), SignedDecimal(TagGPSLatitude, TagGPSLatitudeRef)).Resolve(s.raw)
	lon := FirstOf(DMS(TagGPSLongitude), SignedDecimal(TagGPSLongitude, TagGPSLongitudeRef)).Resolve(s.raw)

	if !lat.OK() {
		s.missing(core.PropLatitude, s.tagReason(TagGPSLatitude))
	}
	if !lon.OK() {
		s.missing(core.PropLongitude, s.tagReason(TagGPSLongitude))
	}
	la, okLat := lat.Get()
	lo, okLon := lon.Get()
	if !okLat || !okLon {
		rec.Latitude, rec.Longitude = lat, lon
		if okLat || okLon {
			s.missing(core.PropZone, "incomplete position")
		}
		return
	}

	if err := geo.ValidateLatLon(la, lo); err != nil {
		s.missing(core.PropLatitude, err.Error())
		s.missing(core.PropLongitude, err.Error())
		return
	}
	rec.Latitude, rec.Longitude = lat, lon

	p, err := geo.ToProjected(la, lo)
	if err != nil {
		s.missing(core.PropZone, err.Error())
		return
	}
	rec.Easting = core.Some(p.X)
	rec.Northing = core.Some(p.Y)
	rec.Zone = core.Some(p.Zone)
}

func (r *Resolver) sensorLookup(model string) Strategy[core.SensorSize] {
	return func(Record) core.Opt[core.SensorSize] {
		size, ok := r.sensors.Lookup(model)
		if !ok || !size.Valid() {
			return core.NA[core.SensorSize]()
		}
		return core.Some(size)
	}
}

func (r *Resolver) resolveTimes(s *resolution, rec *core.ImageRecord) {
	rec.LocalTime = Time(TagDateTimeOriginal, exifTimeLayout, isoTimeLayout)(s.raw)
	if !rec.LocalTime.OK() {
		s.missing(core.PropLocalTime, s.tagReason(TagDateTimeOriginal))
	}

	rec.UTCTime = FirstOf(
		Time(TagUTCAtExposure, exifTimeLayout, isoTimeLayout),
		r.zonedUTC(rec),
	).Resolve(s.raw)
	if !rec.UTCTime.OK() {
		reason := "no UTCAtExposure tag and no local time with position"
		if s.raw.Has(TagUTCAtExposure) {
			reason = "malformed UTCAtExposure"
		}
		s.missing(core.PropUTCTime, reason)
	}
}

// zonedUTC interprets the local capture time in the zone at the image position.
func (r *Resolver) zonedUTC(rec *core.ImageRecord) Strategy[time.Time] {
	return func(Record) core.Opt[time.Time] {
		local, okT := rec.LocalTime.Get()
		lat, okLat := rec.Latitude.Get()
		lon, okLon := rec.Longitude.Get()
		if !okT || !okLat || !okLon || r.locator == nil {
			return core.NA[time.Time]()
		}
		loc, err := r.locator.Locate(lat, lon)
		if err != nil {
			return core.NA[time.Time]()
		}
		wall := time.Date(local.Year(), local.Month(), local.Day(),
			local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
		return core.Some(wall.UTC())
	}
}

func imageSize(raw Record) core.Opt[core.ImageSize] {
	pair := func(wTag, hTag string) Strategy[core.ImageSize] {
		return func(r Record) core.Opt[core.ImageSize] {
			w, okW := Int(wTag)(r).Get()
			h, okH := Int(hTag)(r).Get()
			if !okW || !okH || w <= 0 || h <= 0 {
				return core.NA[core.ImageSize]()
			}
			return core.Some(core.ImageSize{Width: w, Height: h})
		}
	}
	return FirstOf(
		pair(TagExifImageWidth, TagExifImageHeight),
		pair(TagImageWidth, TagImageHeight),
	).Resolve(raw)
}

// speed is the magnitude of the three axis speeds; each axis tries the flight
// record naming first.
func speed(raw Record) core.Opt[float64] {
	axes := []Chain[float64]{
		FirstOf(Float(TagFlightXSpeed), Float(TagSpeedX)),
		FirstOf(Float(TagFlightYSpeed), Float(TagSpeedY)),
		FirstOf(Float(TagFlightZSpeed), Float(TagSpeedZ)),
	}
	var sum float64
	for _, axis := range axes {
		v, ok := axis.Resolve(raw).Get()
		if !ok {
			return core.NA[float64]()
		}
		sum += v * v
	}
	return core.Some(math.Sqrt(sum))
}

// PoseFor builds the camera pose of a record, or reports false when a field the
// footprint needs is unavailable.
func PoseFor(rec core.ImageRecord) (core.CameraPose, bool) {
	lat, ok1 := rec.Latitude.Get()
	lon, ok2 := rec.Longitude.Get()
	h, ok3 := rec.Height.Get()
	pitch, ok4 := rec.Pitch.Get()
	yaw, ok5 := rec.Yaw.Get()
	f, ok6 := rec.FocalLength.Get()
	sensor, ok7 := rec.SensorSize.Get()
	img, ok8 := rec.ImageSize.Get()
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return core.CameraPose{}, false
	}
	return core.CameraPose{
		Latitude:    lat,
		Longitude:   lon,
		Height:      h,
		Pitch:       pitch,
		Yaw:         yaw,
		FocalLength: f,
		Sensor:      sensor,
		Image:       img,
	}, true
}
