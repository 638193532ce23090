package metadata

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/bradfitz/latlong"
)

// ErrNoTimezone is returned when no IANA zone covers a position.
var ErrNoTimezone = errors.New("no timezone for position")

// TimezoneLocator finds the local time zone at a position.
type TimezoneLocator interface {
	Locate(lat, lon float64) (*time.Location, error)
}

// LatLongLocator resolves zones offline from the bundled latlong shapes.
type LatLongLocator struct{}

func (LatLongLocator) Locate(lat, lon float64) (*time.Location, error) {
	name := latlong.LookupZoneName(lat, lon)
	if name == "" {
		return nil, fmt.Errorf("%.5f,%.5f: %w", lat, lon, ErrNoTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading zone %q: %w", name, err)
	}
	return loc, nil
}

// FixedLocator always returns the same zone.
type FixedLocator struct {
	Location *time.Location
}

func (f FixedLocator) Locate(float64, float64) (*time.Location, error) {
	if f.Location == nil {
		return nil, ErrNoTimezone
	}
	return f.Location, nil
}
