package database

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/dronemap/footprints/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.New(io.Discard))
	require.NoError(t, m.ConnectSQLite(""))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestSetup_CreatesTablesOnce(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Setup("1.2.3"))
	require.NoError(t, m.Setup("9.9.9"))

	for _, tbl := range []any{&model.CatalogueInfo{}, &model.Shoot{}, &model.Footprint{}} {
		assert.True(t, m.DB.Migrator().HasTable(tbl))
	}

	var infos []model.CatalogueInfo
	require.NoError(t, m.DB.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "1.2.3", infos[0].Version)
}

func TestSetup_NotConnected(t *testing.T) {
	assert.Error(t, NewManager(zerolog.New(io.Discard)).Setup("1"))
}

func TestMemoryDatabasesAreIsolated(t *testing.T) {
	a := newTestManager(t)
	b := newTestManager(t)
	require.NoError(t, a.Setup("a"))

	assert.True(t, a.DB.Migrator().HasTable(&model.Shoot{}))
	assert.False(t, b.DB.Migrator().HasTable(&model.Shoot{}))
}

func TestDumpMemoryToDisk(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Setup("1"))
	require.NoError(t, m.DB.Create(&model.Shoot{Name: "flight"}).Error)

	path := filepath.Join(t.TempDir(), "catalogue.db")
	require.NoError(t, m.DumpMemoryToDisk(path))
	// a second dump replaces the first
	require.NoError(t, m.DumpMemoryToDisk(path))

	disk := NewManager(zerolog.New(io.Discard))
	require.NoError(t, disk.ConnectSQLite(path))
	defer disk.Close()

	var shoots []model.Shoot
	require.NoError(t, disk.DB.Find(&shoots).Error)
	require.Len(t, shoots, 1)
	assert.Equal(t, "flight", shoots[0].Name)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, DumpMemoryDBToDisk(m.DB, ""))
}
