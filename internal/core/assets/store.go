// Package assets stores uploaded images on disk as display-ready JPEG renditions.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the path under which stored assets are served
const URLPrefix = "/uploads/"

// Store persists image uploads and removes superseded ones
type Store interface {
	// Save renders data and stores it under a fresh name, returning its reference.
	Save(ctx context.Context, data []byte, contentTypeHint string) (string, error)

	// Delete removes the asset. A missing asset is not an error.
	Delete(ctx context.Context, ref string) error
}

// DiskStore implements Store on a local directory.
// Assets are stored flat as {dir}/{uuid}.jpg and referenced as /uploads/{uuid}.jpg.
type DiskStore struct {
	dir       string
	rendition Rendition
}

// NewDiskStore creates the upload directory if needed and returns a store writing into it
func NewDiskStore(dir string, rendition Rendition) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory cannot be empty")
	}
	if rendition.MaxWidth <= 0 {
		rendition.MaxWidth = DefaultMaxWidth
	}
	if rendition.Quality < 1 || rendition.Quality > 100 {
		rendition.Quality = DefaultQuality
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{dir: dir, rendition: rendition}, nil
}

// Dir returns the directory assets are written to
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save sniffs and renders the upload, then writes it atomically
// (temp file then rename) under a random name.
func (s *DiskStore) Save(ctx context.Context, data []byte, contentTypeHint string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		slog.Warn("[ASSETS] rejected non-image upload",
			"sniffed", sniffed,
			"declared", contentTypeHint,
		)
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, sniffed)
	}

	rendered, err := s.rendition.Render(data)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ".jpg"
	path := filepath.Join(s.dir, name)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, rendered, 0o644); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to commit asset: %w", err)
	}

	slog.Info("[ASSETS] stored",
		"name", name,
		"source_bytes", len(data),
		"stored_bytes", len(rendered),
	)

	return URLPrefix + name, nil
}

// Delete removes the asset named by ref. Returns nil if it doesn't exist (idempotent delete).
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset %s: %w", ref, err)
	}

	slog.Info("[ASSETS] deleted", "ref", ref)
	return nil
}

// Path resolves a reference ("/uploads/x.jpg" or a bare "x.jpg") to its file path.
// References that would escape the upload directory are rejected.
func (s *DiskStore) Path(ref string) (string, error) {
	name := strings.TrimPrefix(ref, URLPrefix)
	if name == "" ||
		strings.ContainsAny(name, "/\\\x00") ||
		strings.Contains(name, "..") ||
		strings.HasSuffix(name, ".tmp") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.dir, name), nil
}
