// Package fileaccess stores output artifacts on the local file system or in S3
// behind one interface. The root is a directory for FSAccess and a bucket for S3Access.
package fileaccess

import (
	"fmt"
	"strings"
)

// FileAccess reads and writes whole objects under a root.
type FileAccess interface {
	ListObjects(root string, prefix string) ([]string, error)

	ReadObject(root string, path string) ([]byte, error)
	WriteObject(root string, path string, data []byte) error

	ReadJSON(root string, path string, itemsPtr any, emptyIfNotFound bool) error
	WriteJSON(root string, path string, itemsPtr any) error

	DeleteObject(root string, path string) error

	IsNotFoundError(err error) bool
}

// jsonIndent is used for every pretty-printed artifact.
const jsonIndent = "  "

// SplitS3URL splits s3://bucket/some/prefix into bucket and prefix.
func SplitS3URL(url string) (bucket string, prefix string, err error) {
	trimmed := strings.TrimPrefix(url, "s3://")
	if trimmed == url {
		return "", "", fmt.Errorf("not an s3 url: %v", url)
	}

	slash := strings.Index(trimmed, "/")
	switch {
	case slash == 0 || trimmed == "":
		return "", "", fmt.Errorf("no bucket in s3 url: %v", url)
	case slash < 0:
		return trimmed, "", nil
	}
	return trimmed[:slash], strings.Trim(trimmed[slash+1:], "/"), nil
}

// IsS3URL reports whether location names an S3 bucket.
func IsS3URL(location string) bool {
	return strings.HasPrefix(location, "s3://")
}
