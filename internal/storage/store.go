// Package storage puts uploaded documents into durable object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"csrhub/internal/config"
)

// ObjectStore stores a blob under key and returns a retrievable URL.
// Implementations refuse to overwrite an existing key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds a unique key: <prefix>/<timestamp>_<uuid>_<sanitized name>
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-")
	if len(base) > 48 {
		base = base[:48]
	}
	if base == "" {
		base = "file"
	}
	prefix = strings.Trim(prefix, "/")
	return fmt.Sprintf("%s/%s_%s_%s%s", prefix, time.Now().UTC().Format("20060102T150405Z"), uuid.NewString(), base, ext)
}

// New returns the object store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
