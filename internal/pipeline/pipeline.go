// Package pipeline runs the batch: it walks the input tree shoot by shoot,
// resolves every image, computes its footprint and hands the result to storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/dronemap/footprints/internal/extractor"
	"github.com/dronemap/footprints/internal/footprint"
	"github.com/dronemap/footprints/internal/logging"
	"github.com/dronemap/footprints/internal/metadata"
	"github.com/dronemap/footprints/internal/storage"
	"github.com/dronemap/footprints/pkg/core"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrNoImages means the input root holds no image at any depth. It aborts the batch.
var ErrNoImages = errors.New("no images found")

// ProgressSink receives the run progress in percent after each shoot.
type ProgressSink interface {
	Report(percent float64)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(percent float64)

func (f ProgressFunc) Report(percent float64) { f(percent) }

// Options of one run.
type Options struct {
	InputRoot string
	Overrides metadata.Overrides
}

// Dependencies holds the collaborators of a Pipeline. Progress, LogManager and
// Meter are optional.
type Dependencies struct {
	Extractor  extractor.Extractor
	Resolver   *metadata.Resolver
	Backend    storage.Backend
	Progress   ProgressSink
	LogManager *logging.SlogManager
	Meter      metric.Meter
}

// Pipeline processes shoots strictly one after another.
type Pipeline struct {
	deps Dependencies
	log  *slog.Logger

	images      metric.Int64Counter
	unavailable metric.Int64Counter
	shoots      metric.Int64Counter
}

// New validates deps and registers the run counters.
func New(deps Dependencies) (*Pipeline, error) {
	if deps.Extractor == nil || deps.Resolver == nil || deps.Backend == nil {
		return nil, errors.New("pipeline needs an extractor, a resolver and a backend")
	}
	if deps.Progress == nil {
		deps.Progress = ProgressFunc(func(float64) {})
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Meter == nil {
		deps.Meter = noop.Meter{}
	}

	p := &Pipeline{deps: deps, log: deps.LogManager.Logger()}
	var err error
	if p.images, err = deps.Meter.Int64Counter("footprints.images",
		metric.WithDescription("Images resolved")); err != nil {
		return nil, err
	}
	if p.unavailable, err = deps.Meter.Int64Counter("footprints.unavailable_fields",
		metric.WithDescription("Image fields that could not be resolved")); err != nil {
		return nil, err
	}
	if p.shoots, err = deps.Meter.Int64Counter("footprints.shoots",
		metric.WithDescription("Shoots written")); err != nil {
		return nil, err
	}
	return p, nil
}

// Run processes every shoot under opts.InputRoot. Cancellation is checked
// between shoots.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	dirs, err := Discover(opts.InputRoot)
	if err != nil {
		return fmt.Errorf("discovering images under %s: %w", opts.InputRoot, err)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("%s: %w", opts.InputRoot, ErrNoImages)
	}
	defer p.deps.LogManager.SetContext()

	p.log.Info("Starting run", "input", opts.InputRoot, "shoots", len(dirs))
	defaults := metadata.NewDefaults(opts.Overrides)
	for i, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(opts.InputRoot, dir)
		if err != nil {
			return err
		}
		shoot := &core.Shoot{
			Dir:    dir,
			RelDir: filepath.ToSlash(rel),
			Name:   filepath.Base(dir),
			Index:  i,
			Total:  len(dirs),
		}
		p.deps.LogManager.SetContext(slog.String("shoot", shoot.RelDir))

		if defaults, err = p.runShoot(ctx, shoot, defaults); err != nil {
			return err
		}
		p.deps.Progress.Report(100 * float64(i+1) / float64(len(dirs)))
	}
	p.log.Info("Run complete", "shoots", len(dirs))
	return nil
}

func (p *Pipeline) runShoot(ctx context.Context, shoot *core.Shoot, defaults metadata.Defaults) (metadata.Defaults, error) {
	records, err := p.deps.Extractor.Extract(ctx, shoot.Dir)
	if err != nil {
		return defaults, fmt.Errorf("shoot %s: %w", shoot.RelDir, err)
	}
	if len(records) == 0 {
		p.log.Info("No image metadata, skipping shoot", "dir", shoot.Dir)
		return defaults, nil
	}

	p.log.Info("Processing shoot", "images", len(records), "index", shoot.Index+1, "total", shoot.Total)
	if err := p.deps.Backend.StartShoot(shoot); err != nil {
		return defaults, fmt.Errorf("starting shoot %s: %w", shoot.RelDir, err)
	}

	for i, raw := range records {
		var feature *core.Feature
		feature, defaults = p.processImage(ctx, shoot, i, raw, defaults)
		if err := p.deps.Backend.RecordFeature(feature); err != nil {
			return defaults, fmt.Errorf("recording %s: %w", feature.Record.RelPath, err)
		}
	}

	if err := p.deps.Backend.EndShoot(); err != nil {
		return defaults, fmt.Errorf("ending shoot %s: %w", shoot.RelDir, err)
	}
	p.shoots.Add(ctx, 1)
	return defaults, nil
}

// processImage never fails: anything that cannot be derived is unavailable.
func (p *Pipeline) processImage(ctx context.Context, shoot *core.Shoot, index int, raw metadata.Record, defaults metadata.Defaults) (*core.Feature, metadata.Defaults) {
	rec, defaults, diags := p.deps.Resolver.Resolve(raw, defaults)
	rec.RelPath = path.Join(shoot.RelDir, imageName(rec.FilePath, index))

	p.images.Add(ctx, 1)
	p.unavailable.Add(ctx, int64(len(diags)))
	for _, d := range diags {
		p.log.Info("Field unavailable", "image", rec.RelPath, "field", d.Field, "reason", d.Reason)
	}

	rec.GSD = gsdFor(rec)
	feature := &core.Feature{Footprint: core.NA[core.Footprint](), Record: rec}

	pose, ok := metadata.PoseFor(rec)
	if !ok {
		return feature, defaults
	}
	fp, err := footprint.Calculate(pose)
	if err != nil {
		p.log.Info("Footprint unavailable", "image", rec.RelPath, "reason", err)
		return feature, defaults
	}
	feature.Footprint = core.Some(fp)
	return feature, defaults
}

// imageName is the base name of the image file. A record carrying neither a
// source path nor a file name is named by its 1-based position in the shoot.
func imageName(filePath string, index int) string {
	if base := path.Base(filepath.ToSlash(filePath)); filePath != "" && base != "/" && base != "." {
		return base
	}
	return fmt.Sprintf("image_%04d", index+1)
}

// gsdFor needs fewer fields than a full pose.
func gsdFor(rec core.ImageRecord) core.Opt[float64] {
	h, ok1 := rec.Height.Get()
	pitch, ok2 := rec.Pitch.Get()
	f, ok3 := rec.FocalLength.Get()
	sensor, ok4 := rec.SensorSize.Get()
	img, ok5 := rec.ImageSize.Get()
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return core.NA[float64]()
	}
	return footprint.GSD(h, pitch, f, sensor.Width, img.Width)
}
