package metadata

import (
	"maps"
	"slices"

	"github.com/dronemap/footprints/pkg/core"
)

// SensorTable maps a camera model to its physical sensor size. Values are
// immutable; With returns an extended copy.
type SensorTable struct {
	sizes map[string]core.SensorSize
}

// DefaultSensorTable returns the built-in camera models.
func DefaultSensorTable() SensorTable {
	return SensorTable{sizes: map[string]core.SensorSize{
		"m3e":       {Width: 17.3, Height: 13},
		"ZenmuseP1": {Width: 35.9, Height: 24},
		"iXM-GS120": {Width: 0, Height: 0},
		"FC3682":    {Width: 9.7, Height: 7.3},
	}}
}

// NewSensorTable builds a table from explicit entries only.
func NewSensorTable(entries map[string]core.SensorSize) SensorTable {
	return SensorTable{sizes: maps.Clone(entries)}
}

// With returns a copy of the table with the given models added or replaced.
func (t SensorTable) With(entries map[string]core.SensorSize) SensorTable {
	out := make(map[string]core.SensorSize, len(t.sizes)+len(entries))
	maps.Copy(out, t.sizes)
	maps.Copy(out, entries)
	return SensorTable{sizes: out}
}

// Lookup returns the sensor size registered for model. Entries with unknown
// (zero) dimensions are reported as found so callers can tell them apart.
func (t SensorTable) Lookup(model string) (core.SensorSize, bool) {
	s, ok := t.sizes[model]
	return s, ok
}

// Models lists the registered models in sorted order.
func (t SensorTable) Models() []string {
	return slices.Sorted(maps.Keys(t.sizes))
}

// Len is the number of registered models.
func (t SensorTable) Len() int {
	return len(t.sizes)
}

// YawFieldTable selects the yaw tag per camera model. Models not listed read
// GimbalYawDegree.
type YawFieldTable struct {
	fields map[string]string
}

// DefaultYawFieldTable returns the built-in selections.
func DefaultYawFieldTable() YawFieldTable {
	return YawFieldTable{fields: map[string]string{
		"FC3682": TagFlightYaw,
	}}
}

// With returns a copy with model reading the given tag.
func (t YawFieldTable) With(entries map[string]string) YawFieldTable {
	out := make(map[string]string, len(t.fields)+len(entries))
	maps.Copy(out, t.fields)
	maps.Copy(out, entries)
	return YawFieldTable{fields: out}
}

// Field returns the yaw tag for model.
func (t YawFieldTable) Field(model string) string {
	if f, ok := t.fields[model]; ok {
		return f
	}
	return TagGimbalYaw
}
