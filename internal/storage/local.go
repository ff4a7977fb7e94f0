package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"csrhub/pkg/apperror"
)

// LocalStore writes objects under a directory, for development
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	if dir == "" {
		dir = "./uploads"
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the root directory served as static files
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperror.Storage(err, "upload cancelled")
	}
	clean := filepath.Clean("/" + key)
	path := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apperror.Storage(err, "failed to create uploads directory")
	}

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", apperror.Conflict("object %s already exists", key)
		}
		return "", apperror.Storage(err, "failed to create file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		_ = os.Remove(path)
		return "", apperror.Storage(err, "failed to save file")
	}
	return fmt.Sprintf("%s%s", s.baseURL, filepath.ToSlash(clean)), nil
}
