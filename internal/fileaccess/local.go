package fileaccess

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FSAccess implements FileAccess on the local file system.
type FSAccess struct{}

// ListObjects returns slash-separated paths relative to root of every file under prefix.
func (a *FSAccess) ListObjects(root string, prefix string) ([]string, error) {
	result := []string{}
	start := a.filePath(root, prefix)

	err := filepath.WalkDir(start, func(found string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, found)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(result)
	return result, err
}

func (a *FSAccess) ReadObject(root string, path string) ([]byte, error) {
	return os.ReadFile(a.filePath(root, path))
}

// WriteObject creates intermediate directories, then creates or truncates the file.
func (a *FSAccess) WriteObject(root string, path string, data []byte) error {
	full := a.filePath(root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (a *FSAccess) ReadJSON(root string, path string, itemsPtr any, emptyIfNotFound bool) error {
	data, err := a.ReadObject(root, path)
	if err != nil {
		if emptyIfNotFound && a.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, itemsPtr)
}

func (a *FSAccess) WriteJSON(root string, path string, itemsPtr any) error {
	data, err := json.MarshalIndent(itemsPtr, "", jsonIndent)
	if err != nil {
		return err
	}
	return a.WriteObject(root, path, data)
}

func (a *FSAccess) DeleteObject(root string, path string) error {
	return os.Remove(a.filePath(root, path))
}

func (a *FSAccess) IsNotFoundError(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (a *FSAccess) filePath(root string, path string) string {
	return filepath.Join(root, filepath.FromSlash(path))
}
