package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when deleting a path the store does not hold.
var ErrNotFound = errors.New("file not found")

// MaxUploadBytes is the ceiling for a single uploaded image.
const MaxUploadBytes = 10 << 20

// AllowedContentTypes are the image types accepted for drawing uploads.
var AllowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// PublicPath joins path elements into the form stored in drawing rows and
// served over HTTP. Absolute and relative upload dirs both come out with
// exactly one leading slash.
func PublicPath(elem ...string) string {
	p := filepath.ToSlash(filepath.Join(elem...))
	return "/" + strings.TrimPrefix(p, "/")
}

// FileStore stores uploaded drawings and hands back an opaque path used for
// later retrieval and deletion.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}
