// Package relay moves chat platform files into the shop's durable media
// storage, producing stable URLs.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// ErrUpload wraps every relay failure: file resolution, download, or the
// storage write. The caller sees all-or-nothing behavior; a failed relay
// stores no file.
var ErrUpload = errors.New("relay: upload failed")

// FileSource resolves an opaque file reference to a downloadable URL.
type FileSource interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Uploader stores a stream under a stable URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Relay streams files from a FileSource into an Uploader under a bounded
// timeout per call.
type Relay struct {
	files   FileSource
	uploads Uploader
	client  *http.Client
	timeout time.Duration
}

func New(files FileSource, uploads Uploader, timeout time.Duration) *Relay {
	return &Relay{
		files:   files,
		uploads: uploads,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Relay fetches the file behind fileID and forwards it into storage,
// returning the resulting URL.
func (r *Relay) Relay(ctx context.Context, fileID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fileURL, err := r.files.FileURL(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("%w: resolve file: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download returned %d", ErrUpload, resp.StatusCode)
	}

	stored, err := r.uploads.Upload(ctx, filenameOf(fileURL), resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: store: %v", ErrUpload, err)
	}
	return stored, nil
}

func filenameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "upload"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
