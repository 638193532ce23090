package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dronemap/footprints/internal/config"
	"github.com/dronemap/footprints/internal/extractor"
	"github.com/dronemap/footprints/internal/logging"
	"github.com/dronemap/footprints/internal/metadata"
	"github.com/dronemap/footprints/internal/otel"
	"github.com/dronemap/footprints/internal/pipeline"
	"github.com/spf13/viper"
	cli "gopkg.in/urfave/cli.v1"
)

// bindRunFlags copies the flags given on the command line over the config file values.
func bindRunFlags(c *cli.Context) {
	stringFlags := map[string]string{
		"input":     "run.inputFolder",
		"output":    "run.outputFolder",
		"extractor": "run.extractor",
	}
	for flag, key := range stringFlags {
		if c.IsSet(flag) {
			viper.Set(key, c.String(flag))
		}
	}

	floats := map[string]string{
		"height":        "run.heightOverride",
		"pitch":         "run.pitchOverride",
		"sensor-width":  "run.sensorWidth",
		"sensor-height": "run.sensorHeight",
	}
	for flag, key := range floats {
		if c.IsSet(flag) {
			viper.Set(key, c.Float64(flag))
		}
	}

	if c.IsSet("keep-only-merged") {
		viper.Set("run.keepOnlyMerged", c.BoolT("keep-only-merged"))
	}
}

func runAction(c *cli.Context) error {
	runStart := time.Now()

	if err := config.LoadOptional(c.String("config")); err != nil {
		return err
	}
	bindRunFlags(c)

	runCfg := config.GetRunConfig()
	if err := runCfg.Validate(); err != nil {
		return err
	}

	// logging
	logsDir := viper.GetString("logsDir")
	logFile, logErr := openRunLog(logsDir, runStart)
	var logOut io.Writer
	if logFile != nil {
		defer logFile.Close()
		logOut = logFile
	}

	provider, otelFile, err := newOTelProvider(logsDir, logFile != nil, runStart)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
		_ = otelFile.Close()
	}()

	logManager := logging.NewSlogManager()
	logManager.Setup(logOut, viper.GetString("logLevel"), provider.LoggerProvider())
	log := logManager.Logger()
	if logErr != nil {
		log.Warn("Run log unavailable, logging to stdout", "logsDir", logsDir, "error", logErr)
	}
	log.Info("Starting footprints", "version", Version, "input", runCfg.InputFolder, "output", runCfg.OutputFolder)

	// collaborators
	ex, err := extractor.New(runCfg.Extractor, log)
	if err != nil {
		return err
	}
	sensors, err := config.GetSensorTable()
	if err != nil {
		return err
	}
	yawFields, err := config.GetYawFields()
	if err != nil {
		return err
	}
	resolver := metadata.NewResolver(
		metadata.WithSensorTable(sensors),
		metadata.WithYawFields(yawFields),
		metadata.WithTimezoneLocator(metadata.LatLongLocator{}),
	)

	backend, err := createStorageBackend(storageDeps{
		Run:        runCfg,
		Storage:    config.GetStorageConfig(),
		Influx:     config.GetInfluxConfig(),
		LogManager: logManager,
		RunStart:   runStart,
	})
	if err != nil {
		log.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		log.Error("Failed to initialize storage backend", "error", err)
		return err
	}

	p, err := pipeline.New(pipeline.Dependencies{
		Extractor: ex,
		Resolver:  resolver,
		Backend:   backend,
		Progress: pipeline.ProgressFunc(func(percent float64) {
			fmt.Fprintf(c.App.Writer, "Progress: %.0f%%\n", percent)
		}),
		LogManager: logManager,
		Meter:      provider.Meter(logging.ServiceName),
	})
	if err != nil {
		_ = backend.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := p.Run(ctx, pipeline.Options{
		InputRoot: runCfg.InputFolder,
		Overrides: runCfg.Overrides(),
	})
	if runErr != nil {
		log.Error("Run failed", "error", runErr)
	}
	closeErr := backend.Close()

	for _, path := range backend.ExportedPaths() {
		fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	}
	if err := logManager.Flush(context.Background()); err != nil {
		log.Warn("Failed to flush logs", "error", err)
	}
	return errors.Join(runErr, closeErr)
}

// openRunLog creates the run log file in logsDir.
func openRunLog(logsDir string, runStart time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}
	f, err := os.Create(logging.LogFilePath(logsDir, logging.ServiceName, runStart))
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	return f, nil
}

// newOTelProvider writes OTel records to their own file next to the run log,
// or to stdout when logsDir is unusable. The returned closer releases that file
// and must only be closed after the provider is shut down.
func newOTelProvider(logsDir string, useLogsDir bool, runStart time.Time) (*otel.Provider, io.Closer, error) {
	var none io.Closer = io.NopCloser(nil)
	cfg := config.GetOTelConfig()
	if !cfg.Enabled {
		p, err := otel.New(otel.Config{})
		return p, none, err
	}

	var out io.Writer = os.Stdout
	closer := none
	if useLogsDir {
		f, err := os.Create(logging.LogFilePath(logsDir, logging.ServiceName+".otel", runStart))
		if err != nil {
			return nil, nil, fmt.Errorf("creating otel log file: %w", err)
		}
		out, closer = f, f
	}

	p, err := otel.New(otel.Config{
		Enabled:      true,
		ServiceName:  cfg.ServiceName,
		BatchTimeout: cfg.BatchTimeout,
		LogWriter:    out,
		Endpoint:     cfg.Endpoint,
		Insecure:     cfg.Insecure,
	})
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return p, closer, nil
}
