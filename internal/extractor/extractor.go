// Package extractor reads raw per-image metadata rows for one directory of images.
package extractor

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dronemap/footprints/internal/metadata"
)

// ErrExtractorFailed means the extractor could not run at all. It aborts the batch.
var ErrExtractorFailed = errors.New("metadata extractor failed")

// Extractor returns one record per image found directly in dir. A directory
// without images yields zero records and no error.
type Extractor interface {
	Extract(ctx context.Context, dir string) ([]metadata.Record, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, dir string) ([]metadata.Record, error)

func (f Func) Extract(ctx context.Context, dir string) ([]metadata.Record, error) {
	return f(ctx, dir)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".iiq":  true,
}

// IsImage reports whether name has a recognised image extension, ignoring case.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Kinds accepted by New.
const (
	KindAuto     = "auto"
	KindExifTool = "exiftool"
	KindNative   = "native"
)

// New returns the extractor for kind. "auto" prefers exiftool when it is on PATH.
func New(kind string, logger *slog.Logger) (Extractor, error) {
	switch strings.ToLower(kind) {
	case "", KindAuto:
		return Auto(logger), nil
	case KindExifTool:
		return NewExifTool(logger), nil
	case KindNative:
		return NewNative(logger), nil
	default:
		return nil, errors.New("unknown extractor: " + kind)
	}
}

// Auto picks exiftool when installed and the built-in reader otherwise.
func Auto(logger *slog.Logger) Extractor {
	if path, err := exec.LookPath(defaultExifTool); err == nil {
		logger.Debug("Using exiftool", "path", path)
		et := NewExifTool(logger)
		et.Path = path
		return et
	}
	logger.Info("exiftool not found on PATH, using built-in EXIF reader")
	return NewNative(logger)
}
