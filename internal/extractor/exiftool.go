package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os/exec"
	"slices"
	"strings"

	"github.com/dronemap/footprints/internal/metadata"
)

const defaultExifTool = "exiftool"

// ExifTool runs the exiftool binary in CSV mode over a directory.
type ExifTool struct {
	Path   string
	logger *slog.Logger
}

// NewExifTool uses the exiftool found on PATH.
func NewExifTool(logger *slog.Logger) *ExifTool {
	return &ExifTool{Path: defaultExifTool, logger: logger}
}

func (e *ExifTool) args(dir string) []string {
	args := []string{"-csv"}
	for _, ext := range slices.Sorted(maps.Keys(imageExtensions)) {
		args = append(args, "-ext", strings.TrimPrefix(ext, "."))
	}
	return append(args, dir)
}

func (e *ExifTool) Extract(ctx context.Context, dir string) ([]metadata.Record, error) {
	cmd := exec.CommandContext(ctx, e.Path, e.args(dir)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w: %w", e.Path, ErrExtractorFailed, err)
	}
	runErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if stdout.Len() == 0 {
		if strings.Contains(stderr.String(), "No matching files") {
			return nil, nil
		}
		if runErr != nil {
			return nil, fmt.Errorf("%s %s: %w: %s", e.Path, dir, ErrExtractorFailed, strings.TrimSpace(stderr.String()))
		}
		return nil, nil
	}

	// exiftool exits non-zero when single files are unreadable; the rest is usable
	if runErr != nil {
		e.logger.Warn("exiftool reported errors", "dir", dir, "error", runErr, "stderr", strings.TrimSpace(stderr.String()))
	}

	records, err := parseCSV(&stdout)
	if err != nil {
		return nil, fmt.Errorf("parsing exiftool output for %s: %w", dir, err)
	}
	return records, nil
}

// parseCSV turns exiftool's header-plus-rows output into records.
func parseCSV(r io.Reader) ([]metadata.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []metadata.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := make(metadata.Record, len(header))
		for i, name := range header {
			if i < len(row) && row[i] != "" {
				rec[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
