// Package postgres implements the storage.Backend interface on a shared
// Postgres catalogue. The connection is opened in Init so an unreachable
// server fails the run before any image is read.
package postgres

import (
	"errors"
	"time"

	"github.com/dronemap/footprints/internal/database"
	"github.com/dronemap/footprints/internal/logging"
	gormstorage "github.com/dronemap/footprints/internal/storage/gorm"
	"github.com/dronemap/footprints/pkg/core"
)

// Config holds configuration for the Postgres storage backend.
type Config struct {
	DSN      string
	RunStart time.Time
	Version  string
}

// Backend connects to Postgres and delegates to the GORM backend.
type Backend struct {
	cfg  Config
	log  *logging.SlogManager
	db   *database.Manager
	gorm *gormstorage.Backend
}

// New creates a new Postgres storage backend. No connection is made until Init.
func New(cfg Config, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		cfg: cfg,
		log: logManager,
		db:  database.NewManager(logManager.Zerolog("database")),
	}
}

// Init connects to the database and migrates the schema.
func (b *Backend) Init() error {
	if err := b.db.ConnectPostgres(b.cfg.DSN); err != nil {
		return err
	}
	b.gorm = gormstorage.New(gormstorage.Dependencies{
		DB:         b.db.DB,
		LogManager: b.log,
		RunStart:   b.cfg.RunStart,
		Version:    b.cfg.Version,
	})
	if err := b.gorm.Init(); err != nil {
		_ = b.db.Close()
		b.gorm = nil
		return err
	}
	return nil
}

// Close flushes an open shoot and closes the connection pool.
func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return errors.Join(b.gorm.Close(), b.db.Close())
}

func (b *Backend) StartShoot(s *core.Shoot) error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.StartShoot(s)
}

func (b *Backend) EndShoot() error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.EndShoot()
}

func (b *Backend) RecordFeature(f *core.Feature) error {
	if b.gorm == nil {
		return errNotConnected
	}
	return b.gorm.RecordFeature(f)
}

var errNotConnected = errors.New("postgres backend not initialized")
