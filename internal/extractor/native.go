package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dronemap/footprints/internal/metadata"
	"github.com/rwcarlsen/goexif/exif"
)

// DJI writes its XMP packet near the start of the file.
const xmpScanLimit = 1 << 20

var djiAttr = regexp.MustCompile(`drone-dji:(\w+)="([^"]*)"`)

// Native reads EXIF with goexif and the DJI XMP attributes with a byte scan.
// Tag names match exiftool's so both extractors feed the same resolver.
type Native struct {
	logger *slog.Logger
}

// NewNative returns the built-in extractor.
func NewNative(logger *slog.Logger) *Native {
	return &Native{logger: logger}
}

func (n *Native) Extract(ctx context.Context, dir string) ([]metadata.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", dir, ErrExtractorFailed, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	records := make([]metadata.Record, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		rec, err := n.readFile(path)
		if err != nil {
			n.logger.Warn("Failed to read image metadata", "file", path, "error", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readFile always returns a record naming the file, even when nothing else could be read.
func (n *Native) readFile(path string) (metadata.Record, error) {
	rec := metadata.Record{
		metadata.TagSourceFile: filepath.ToSlash(path),
		metadata.TagFileName:   filepath.Base(path),
	}

	f, err := os.Open(path)
	if err != nil {
		return rec, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, xmpScanLimit))
	if err != nil {
		return rec, err
	}
	readXMP(head, rec)

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(head)); err == nil {
		rec[metadata.TagImageWidth] = strconv.Itoa(cfg.Width)
		rec[metadata.TagImageHeight] = strconv.Itoa(cfg.Height)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return rec, err
	}
	x, err := exif.Decode(f)
	if err != nil {
		n.logger.Debug("No EXIF block", "file", path, "error", err)
		return rec, nil
	}
	readEXIF(x, rec)
	return rec, nil
}

func readXMP(data []byte, rec metadata.Record) {
	for _, m := range djiAttr.FindAllSubmatch(data, -1) {
		rec[string(m[1])] = string(m[2])
	}
}

func readEXIF(x *exif.Exif, rec metadata.Record) {
	if v := exifString(x, exif.Model); v != "" {
		rec[metadata.TagModel] = v
	}
	if v := exifString(x, exif.DateTimeOriginal); v != "" {
		rec[metadata.TagDateTimeOriginal] = v
	}

	if lat, lon, err := x.LatLong(); err == nil {
		rec[metadata.TagGPSLatitude] = formatCoord(math.Abs(lat))
		rec[metadata.TagGPSLatitudeRef] = hemisphere(lat, "N", "S")
		rec[metadata.TagGPSLongitude] = formatCoord(math.Abs(lon))
		rec[metadata.TagGPSLongitudeRef] = hemisphere(lon, "E", "W")
	}

	if fl, err := x.Get(exif.FocalLength); err == nil {
		if num, den, err := fl.Rat2(0); err == nil && den != 0 {
			rec[metadata.TagFocalLength] = fmt.Sprintf("%.1f mm", float64(num)/float64(den))
		}
	}

	if w, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := w.Int(0); err == nil {
			rec[metadata.TagExifImageWidth] = strconv.Itoa(v)
		}
	}
	if h, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := h.Int(0); err == nil {
			rec[metadata.TagExifImageHeight] = strconv.Itoa(v)
		}
	}
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func hemisphere(v float64, pos, neg string) string {
	if v < 0 {
		return neg
	}
	return pos
}
