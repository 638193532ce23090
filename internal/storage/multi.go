package storage

import (
	"errors"

	"github.com/dronemap/footprints/pkg/core"
)

// Multi fans every call out to a list of backends in order. All backends are
// called even when an earlier one fails; the errors are joined.
type Multi struct {
	backends []Backend
}

// NewMulti combines backends. Nil entries are skipped.
func NewMulti(backends ...Backend) *Multi {
	valid := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			valid = append(valid, b)
		}
	}
	return &Multi{backends: valid}
}

// Len returns the number of combined backends.
func (m *Multi) Len() int {
	return len(m.backends)
}

func (m *Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Init initialises every backend. On failure the ones already initialised are closed.
func (m *Multi) Init() error {
	for i, b := range m.backends {
		if err := b.Init(); err != nil {
			for _, done := range m.backends[:i] {
				_ = done.Close()
			}
			return err
		}
	}
	return nil
}

func (m *Multi) Close() error {
	return m.each(Backend.Close)
}

func (m *Multi) StartShoot(shoot *core.Shoot) error {
	return m.each(func(b Backend) error { return b.StartShoot(shoot) })
}

func (m *Multi) EndShoot() error {
	return m.each(Backend.EndShoot)
}

func (m *Multi) RecordFeature(f *core.Feature) error {
	return m.each(func(b Backend) error { return b.RecordFeature(f) })
}

// ExportedPaths collects the paths of every backend that implements Exporter.
func (m *Multi) ExportedPaths() []string {
	var paths []string
	for _, b := range m.backends {
		if e, ok := b.(Exporter); ok {
			paths = append(paths, e.ExportedPaths()...)
		}
	}
	return paths
}
