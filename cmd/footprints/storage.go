package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dronemap/footprints/internal/config"
	"github.com/dronemap/footprints/internal/fileaccess"
	"github.com/dronemap/footprints/internal/influx"
	"github.com/dronemap/footprints/internal/logging"
	"github.com/dronemap/footprints/internal/storage"
	"github.com/dronemap/footprints/internal/storage/geojson"
	influxstorage "github.com/dronemap/footprints/internal/storage/influx"
	pgstorage "github.com/dronemap/footprints/internal/storage/postgres"
	sqlitestorage "github.com/dronemap/footprints/internal/storage/sqlite"
	wsstorage "github.com/dronemap/footprints/internal/storage/websocket"
)

type storageDeps struct {
	Run        config.RunConfig
	Storage    config.StorageConfig
	Influx     config.InfluxConfig
	LogManager *logging.SlogManager
	RunStart   time.Time
}

// createStorageBackend always writes GeoJSON artifacts and adds the configured
// catalogue, stream and metrics backends after it.
func createStorageBackend(deps storageDeps) (*storage.Multi, error) {
	log := deps.LogManager.Logger()

	artifacts, err := createGeoJSONBackend(deps)
	if err != nil {
		return nil, err
	}
	backends := []storage.Backend{artifacts}

	for _, name := range deps.Storage.Backends {
		switch strings.ToLower(name) {
		case config.BackendGeoJSON:
			// always present

		case config.BackendSQLite:
			dumpPath := deps.Storage.SQLite.Path
			if dumpPath == "" {
				if fileaccess.IsS3URL(deps.Run.OutputFolder) {
					return nil, fmt.Errorf("storage.sqlite.path is required when the output is in S3")
				}
				dumpPath = filepath.Join(deps.Run.OutputFolder,
					fmt.Sprintf("%s_%s.db", logging.ServiceName, deps.RunStart.Format("20060102_150405")))
			}
			backend, err := sqlitestorage.New(sqlitestorage.Config{
				DumpInterval: deps.Storage.SQLite.DumpInterval,
				DumpPath:     dumpPath,
				RunStart:     deps.RunStart,
				Version:      Version,
			}, deps.LogManager)
			if err != nil {
				return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
			}
			log.Info("SQLite storage backend initialized", "path", dumpPath)
			backends = append(backends, backend)

		case config.BackendPostgres:
			log.Info("Postgres storage backend initialized", "host", deps.Storage.Postgres.Host)
			backends = append(backends, pgstorage.New(pgstorage.Config{
				DSN:      deps.Storage.Postgres.DSN(),
				RunStart: deps.RunStart,
				Version:  Version,
			}, deps.LogManager))

		case config.BackendWebSocket:
			if deps.Storage.WebSocket.URL == "" {
				return nil, fmt.Errorf("ws.url is required for the websocket backend")
			}
			wsURL := httpToWS(deps.Storage.WebSocket.URL)
			log.Info("WebSocket storage backend initialized", "url", wsURL)
			backends = append(backends, wsstorage.New(wsstorage.Config{
				URL:      wsURL,
				Secret:   deps.Storage.WebSocket.Secret,
				RunStart: deps.RunStart,
			}, log))

		case config.BackendInflux:
			// enabled through influx.enabled as well

		default:
			return nil, fmt.Errorf("unknown storage backend %q", name)
		}
	}

	if deps.Influx.Enabled || containsFold(deps.Storage.Backends, config.BackendInflux) {
		cfg := deps.Influx
		cfg.Enabled = true
		manager := influx.NewManager(deps.LogManager.Zerolog("influx"), cfg)
		log.Info("InfluxDB metrics backend initialized", "url", cfg.URL, "bucket", cfg.Bucket)
		backends = append(backends, influxstorage.New(manager, func() error {
			return manager.Connect(context.Background())
		}))
	}

	return storage.NewMulti(backends...), nil
}

// createGeoJSONBackend writes to the local file system or to S3 for s3:// outputs.
func createGeoJSONBackend(deps storageDeps) (*geojson.Backend, error) {
	cfg := geojson.Config{KeepOnlyMerged: deps.Run.KeepOnlyMerged}
	log := deps.LogManager.Logger()

	if !fileaccess.IsS3URL(deps.Run.OutputFolder) {
		cfg.Root = deps.Run.OutputFolder
		return geojson.New(&fileaccess.FSAccess{}, cfg, log), nil
	}

	bucket, prefix, err := fileaccess.SplitS3URL(deps.Run.OutputFolder)
	if err != nil {
		return nil, err
	}
	fa, err := fileaccess.NewS3Access(fileaccess.S3Options{
		Region:    deps.Storage.S3.Region,
		Endpoint:  deps.Storage.S3.Endpoint,
		PathStyle: deps.Storage.S3.PathStyle,
	}, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	cfg.Root = bucket
	return geojson.New(fa, cfg, log), nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
