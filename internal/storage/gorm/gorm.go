// Package gormstorage implements the storage.Backend interface on a GORM
// catalogue. Rows are batched per shoot and written whenever a batch fills
// and when the shoot ends.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dronemap/footprints/internal/database"
	"github.com/dronemap/footprints/internal/logging"
	"github.com/dronemap/footprints/internal/model"
	"github.com/dronemap/footprints/internal/model/convert"
	"github.com/dronemap/footprints/internal/queue"
	"github.com/dronemap/footprints/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 500

// ErrNoShoot is returned when a feature arrives outside StartShoot/EndShoot.
var ErrNoShoot = errors.New("no shoot started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	RunStart   time.Time
	Version    string
	// BatchSize rows are buffered before an insert; zero means insertBatchSize.
	BatchSize int
}

// Backend implements storage.Backend on a GORM database.
type Backend struct {
	deps  Dependencies
	batch *queue.Batch[model.Footprint]

	mu    sync.Mutex
	shoot *model.Shoot
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = insertBatchSize
	}
	return &Backend{deps: deps}
}

// DB returns the underlying database.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and creates the row batch.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}
	b.batch = queue.NewBatch[model.Footprint](b.deps.BatchSize)

	log := b.deps.LogManager.Logger()
	log.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB, b.deps.Version); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	log.Info("Database setup complete")
	return nil
}

// Close writes the rows of a shoot that was never ended. The shoot stays
// marked incomplete. The database itself belongs to the caller.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shoot == nil {
		return nil
	}
	err := b.flush(false)
	b.shoot = nil
	return err
}

// StartShoot inserts the shoot row so features can reference it.
func (b *Backend) StartShoot(s *core.Shoot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shoot != nil {
		if err := b.flush(false); err != nil {
			return err
		}
	}

	row := convert.CoreToShoot(*s, b.deps.RunStart)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert shoot %s: %w", s.RelDir, err)
	}
	b.shoot = &row
	return nil
}

// RecordFeature buffers the catalogue row of one image, inserting the batch
// once it is full.
func (b *Backend) RecordFeature(f *core.Feature) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shoot == nil {
		return fmt.Errorf("recording %s: %w", f.Record.RelPath, ErrNoShoot)
	}

	row, err := convert.CoreToFootprint(*f, b.shoot.ID)
	if err != nil {
		return err
	}
	if b.batch.Add(row) {
		return b.insert()
	}
	return nil
}

// EndShoot writes the queued rows and the shoot totals.
func (b *Backend) EndShoot() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shoot == nil {
		return ErrNoShoot
	}
	err := b.flush(true)
	b.shoot = nil
	return err
}

// insert writes the buffered rows and adds them to the shoot totals. Must be
// called with mu held.
func (b *Backend) insert() error {
	rows := b.batch.Take()
	if len(rows) == 0 {
		return nil
	}
	if err := b.deps.DB.Omit(clause.Associations).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert footprints of shoot %s: %w", b.shoot.RelDir, err)
	}

	b.shoot.ImageCount += len(rows)
	for _, r := range rows {
		if r.HasFootprint {
			b.shoot.FootprintCount++
		}
		if r.AreaM2.Valid {
			b.shoot.TotalAreaM2 += r.AreaM2.Float64
		}
	}
	b.deps.LogManager.Logger().Debug("Inserted footprint rows", "shoot", b.shoot.RelDir, "rows", len(rows))
	return nil
}

// flush inserts the remaining rows and stores the shoot totals. Must be
// called with mu held.
func (b *Backend) flush(completed bool) error {
	if err := b.insert(); err != nil {
		return err
	}
	b.shoot.Completed = completed

	if err := b.deps.DB.Model(b.shoot).Updates(map[string]any{
		"ImageCount":     b.shoot.ImageCount,
		"FootprintCount": b.shoot.FootprintCount,
		"TotalAreaM2":    b.shoot.TotalAreaM2,
		"Completed":      completed,
	}).Error; err != nil {
		return fmt.Errorf("failed to update shoot %s: %w", b.shoot.RelDir, err)
	}

	b.deps.LogManager.Logger().Debug("Wrote shoot to catalogue",
		"shoot", b.shoot.RelDir,
		"images", b.shoot.ImageCount,
		"completed", completed)
	return nil
}
