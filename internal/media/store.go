// Package media stores uploaded binary assets under stable URLs.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes assets into a directory served at baseURL. Object names are
// freshly generated per save; only the extension of the original filename
// survives.
type Store struct {
	dir     string
	baseURL string
}

// NewStore ensures the target directory exists and returns a Store.
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save streams r into durable storage and returns the public URL. The write
// is all-or-nothing: content lands in a temp file first and is renamed into
// place only after a complete copy.
func (s *Store) Save(ext string, r io.Reader) (string, error) {
	name := uuid.NewString() + normalizeExt(ext)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("media: create temp: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("media: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("media: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("media: rename: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// Dir returns the storage directory for static file serving.
func (s *Store) Dir() string {
	return s.dir
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
