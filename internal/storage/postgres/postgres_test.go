package postgres

import (
	"testing"

	"github.com/dronemap/footprints/internal/storage"
	"github.com/dronemap/footprints/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_UnreachableServer(t *testing.T) {
	b := New(Config{
		DSN: "host=127.0.0.1 port=1 user=postgres password=postgres dbname=footprints sslmode=disable connect_timeout=2",
	}, nil)

	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
	assert.NoError(t, b.Close())
}

func TestNotInitialized(t *testing.T) {
	b := New(Config{}, nil)
	assert.Error(t, b.StartShoot(&core.Shoot{Name: "a"}))
	assert.Error(t, b.RecordFeature(&core.Feature{}))
	assert.Error(t, b.EndShoot())
	assert.NoError(t, b.Close())
}
