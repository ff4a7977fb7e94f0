// Package upload checks user files against the per-class size limits and the
// MIME allowlist before they reach object storage.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"csrhub/internal/config"
	"csrhub/pkg/apperror"
)

// File is an incoming upload as received from the client
type File struct {
	Name         string
	DeclaredType string
	Size         int64
	Content      io.Reader
}

// Checked is a file that passed validation, fully buffered
type Checked struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Reader returns a fresh reader over the file content
func (c *Checked) Reader() io.Reader {
	return bytes.NewReader(c.Data)
}

type Validator struct {
	cfg     config.UploadConfig
	allowed map[string]struct{}
}

func NewValidator(cfg config.UploadConfig) *Validator {
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMETypes))
	for _, t := range cfg.AllowedMIMETypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Validator{cfg: cfg, allowed: allowed}
}

// Allowed reports whether a MIME type (parameters ignored) is on the allowlist
func (v *Validator) Allowed(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	_, ok := v.allowed[mediaType]
	return ok
}

// Check enforces the size limit of class (inclusive) and requires both the
// declared type and the sniffed content type to be allowed.
func (v *Validator) Check(class string, f File) (*Checked, error) {
	limit, ok := v.cfg.MaxBytes(class)
	if !ok {
		return nil, apperror.Internal(nil, "unknown document class %q", class)
	}
	if f.Content == nil {
		return nil, apperror.Validation("file is required")
	}
	if f.Size > limit {
		return nil, apperror.Validation("file exceeds the %s limit", humanSize(limit))
	}
	if !v.Allowed(f.DeclaredType) {
		return nil, apperror.Validation("file type %q is not allowed", f.DeclaredType)
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, limit+1))
	if err != nil {
		return nil, apperror.Internal(err, "failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, apperror.Validation("file exceeds the %s limit", humanSize(limit))
	}
	if len(data) == 0 {
		return nil, apperror.Validation("file is empty")
	}

	detected := mimetype.Detect(data)
	sniffed := ""
	for m := detected; m != nil; m = m.Parent() {
		if v.Allowed(m.String()) {
			sniffed = m.String()
			break
		}
	}
	if sniffed == "" {
		return nil, apperror.Validation("file content %q is not allowed", detected.String())
	}

	return &Checked{
		Name:        f.Name,
		ContentType: sniffed,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// CheckMultipart opens a multipart file header and validates it
func (v *Validator) CheckMultipart(class string, fh *multipart.FileHeader) (*Checked, error) {
	if fh == nil {
		return nil, apperror.Validation("file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return nil, apperror.Validation("failed to open uploaded file")
	}
	defer src.Close()

	return v.Check(class, File{
		Name:         fh.Filename,
		DeclaredType: fh.Header.Get("Content-Type"),
		Size:         fh.Size,
		Content:      src,
	})
}

func humanSize(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
