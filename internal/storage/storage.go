// internal/storage/storage.go
package storage

import "github.com/dronemap/footprints/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Shoot management
	StartShoot(shoot *core.Shoot) error
	EndShoot() error

	// Feature recording, one call per resolved image
	RecordFeature(f *core.Feature) error
}

// Exporter is an optional interface for storage backends that produce
// artifact files the caller may want to report.
type Exporter interface {
	ExportedPaths() []string
}
