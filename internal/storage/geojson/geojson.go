package geojson

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/dronemap/footprints/internal/fileaccess"
	"github.com/dronemap/footprints/pkg/core"
)

// Artifact name suffixes.
const (
	FootprintSuffix = "_footprint.geojson"
	MergedSuffix    = "_footprints_merged.geojson"
)

// Config locates the artifacts. Root is a directory for local output and a bucket
// for S3; Prefix is prepended to every artifact path under Root.
type Config struct {
	Root           string
	Prefix         string
	KeepOnlyMerged bool
}

// Backend is the feature emitter. It writes one artifact per image and merges
// them per shoot.
type Backend struct {
	fa     fileaccess.FileAccess
	cfg    Config
	logger *slog.Logger

	shoot    *core.Shoot
	written  []string
	exported []string
}

// New creates a GeoJSON backend writing through fa.
func New(fa fileaccess.FileAccess, cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{fa: fa, cfg: cfg, logger: logger}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// ArtifactPath returns the per-image artifact path for an image path relative to
// the input root: the extension is replaced by FootprintSuffix.
func (b *Backend) ArtifactPath(relImage string) string {
	rel := strings.TrimSuffix(relImage, path.Ext(relImage))
	return path.Join(b.cfg.Prefix, rel+FootprintSuffix)
}

// MergedPath returns the merged artifact path of a shoot.
func (b *Backend) MergedPath(shoot *core.Shoot) string {
	return path.Join(b.cfg.Prefix, shoot.RelDir, shoot.Name+MergedSuffix)
}

func (b *Backend) StartShoot(shoot *core.Shoot) error {
	b.shoot = shoot
	b.written = nil
	return nil
}

// RecordFeature writes the image's own artifact immediately.
func (b *Backend) RecordFeature(f *core.Feature) error {
	if f.Record.RelPath == "" {
		return core.Invalid("relative path", f.Record.FilePath, "is required to name the artifact")
	}
	feature, err := NewFeature(f)
	if err != nil {
		return err
	}

	p := b.ArtifactPath(f.Record.RelPath)
	fc := NewFeatureCollection(feature)
	if err := b.fa.WriteJSON(b.cfg.Root, p, &fc); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	b.written = append(b.written, p)
	return nil
}

// EndShoot merges the artifacts written since StartShoot, in write order, and
// removes them afterwards when KeepOnlyMerged is set. A shoot without features
// produces no merged artifact.
func (b *Backend) EndShoot() error {
	shoot, written := b.shoot, b.written
	b.shoot, b.written = nil, nil
	if shoot == nil || len(written) == 0 {
		return nil
	}

	features := make([]Feature, 0, len(written))
	for _, p := range written {
		var fc FeatureCollection
		if err := b.fa.ReadJSON(b.cfg.Root, p, &fc, false); err != nil {
			return fmt.Errorf("reading %s for merge: %w", p, err)
		}
		features = append(features, fc.Features...)
	}

	merged := b.MergedPath(shoot)
	fc := NewFeatureCollection(features...)
	if err := b.fa.WriteJSON(b.cfg.Root, merged, &fc); err != nil {
		return fmt.Errorf("writing %s: %w", merged, err)
	}
	b.exported = append(b.exported, merged)
	b.logger.Info("Merged shoot footprints", "shoot", shoot.Name, "features", len(features), "path", merged)

	if !b.cfg.KeepOnlyMerged {
		b.exported = append(b.exported, written...)
		return nil
	}
	for _, p := range written {
		if err := b.fa.DeleteObject(b.cfg.Root, p); err != nil && !b.fa.IsNotFoundError(err) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// ExportedPaths lists every artifact left in place so far.
func (b *Backend) ExportedPaths() []string {
	return b.exported
}
