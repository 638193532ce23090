package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/dronemap/footprints/internal/extractor"
)

// Discover returns every directory under root, root included, that directly
// contains at least one image. The result is sorted.
func Discover(root string) ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && extractor.IsImage(d.Name()) {
			seen[filepath.Dir(p)] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}
