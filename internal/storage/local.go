package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps uploads on the local filesystem under a base directory,
// served statically by the HTTP layer.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// BaseDir returns the directory uploads are written to.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

func (s *LocalStore) Store(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	ext, ok := AllowedContentTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	name := "drawing-" + uuid.NewString() + ext
	dst := filepath.Join(s.baseDir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(r, size)); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write file: %w", err)
	}

	return PublicPath(dst), nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	// Only the file name is trusted; the directory is always our own, so a
	// crafted path cannot escape it.
	local := filepath.Join(s.baseDir, filepath.Base(filepath.FromSlash(path)))
	if err := os.Remove(local); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *LocalStore) URL(path string) string {
	return path
}
