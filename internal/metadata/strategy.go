package metadata

import (
	"strconv"
	"strings"
	"time"

	"github.com/dronemap/footprints/internal/geo"
	"github.com/dronemap/footprints/pkg/core"
)

// Strategy derives one field from a record, or reports it unavailable.
type Strategy[T any] func(Record) core.Opt[T]

// Chain is an ordered list of strategies; the first available result wins.
type Chain[T any] []Strategy[T]

// FirstOf builds a chain from strategies in priority order.
func FirstOf[T any](strategies ...Strategy[T]) Chain[T] {
	return Chain[T](strategies)
}

// Resolve runs the chain against a record.
func (c Chain[T]) Resolve(r Record) core.Opt[T] {
	for _, s := range c {
		if v := s(r); v.OK() {
			return v
		}
	}
	return core.NA[T]()
}

// Then appends fallbacks to a copy of the chain.
func (c Chain[T]) Then(more ...Strategy[T]) Chain[T] {
	out := make(Chain[T], 0, len(c)+len(more))
	out = append(out, c...)
	return append(out, more...)
}

// Fixed ignores the record and yields v, used for overrides and sticky defaults.
func Fixed[T any](v core.Opt[T]) Strategy[T] {
	return func(Record) core.Opt[T] { return v }
}

// Float reads a tag as a number, accepting a trailing unit ("24.0 mm").
func Float(tag string) Strategy[float64] {
	return func(r Record) core.Opt[float64] {
		s, ok := r.Get(tag)
		if !ok {
			return core.NA[float64]()
		}
		v, ok := leadingFloat(s)
		if !ok {
			return core.NA[float64]()
		}
		return core.Some(v)
	}
}

// Int reads a tag as a whole number.
func Int(tag string) Strategy[int] {
	return func(r Record) core.Opt[int] {
		s, ok := r.Get(tag)
		if !ok {
			return core.NA[int]()
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			f, ok := leadingFloat(s)
			if !ok {
				return core.NA[int]()
			}
			v = int(f)
		}
		return core.Some(v)
	}
}

// DMS reads a degrees/minutes/seconds coordinate with hemisphere.
func DMS(tag string) Strategy[float64] {
	return func(r Record) core.Opt[float64] {
		s, ok := r.Get(tag)
		if !ok {
			return core.NA[float64]()
		}
		v, err := geo.ParseDMS(s)
		if err != nil {
			return core.NA[float64]()
		}
		return core.Some(v)
	}
}

// SignedDecimal reads a decimal coordinate, negated by a S/W reference tag.
func SignedDecimal(tag, refTag string) Strategy[float64] {
	return func(r Record) core.Opt[float64] {
		s, ok := r.Get(tag)
		if !ok {
			return core.NA[float64]()
		}
		ref, _ := r.Get(refTag)
		v, err := geo.ParseDecimal(s, ref)
		if err != nil {
			return core.NA[float64]()
		}
		return core.Some(v)
	}
}

// Time parses a tag with the first matching layout. Fractional seconds and a
// trailing Z are accepted. The result is stored as UTC wall clock.
func Time(tag string, layouts ...string) Strategy[time.Time] {
	return func(r Record) core.Opt[time.Time] {
		s, ok := r.Get(tag)
		if !ok {
			return core.NA[time.Time]()
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return core.Some(t)
			}
		}
		return core.NA[time.Time]()
	}
}
