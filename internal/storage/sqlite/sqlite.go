// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite catalogue with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific concerns are creating the
// in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dronemap/footprints/internal/database"
	"github.com/dronemap/footprints/internal/logging"
	gormstorage "github.com/dronemap/footprints/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
	RunStart     time.Time
	Version      string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *database.Manager
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	db := database.NewManager(logManager.Zerolog("database"))
	if err := db.ConnectSQLite(""); err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db.DB,
		LogManager: logManager,
		RunStart:   cfg.RunStart,
		Version:    cfg.Version,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes the final dump and closes the database.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()

	errs := []error{b.Backend.Close()}
	if b.cfg.DumpPath != "" {
		errs = append(errs, b.db.DumpMemoryToDisk(b.cfg.DumpPath))
	}
	errs = append(errs, b.db.Close())
	return errors.Join(errs...)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.db.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
				b.log.Logger().Error("Error dumping to disk", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}
