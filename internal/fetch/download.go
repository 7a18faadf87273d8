// Package fetch downloads attachments from signed URLs into a stable temp
// location for local viewing.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDir is the directory attachments land in, under the host temp dir.
// It persists across invocations so a path printed once keeps working.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "trace_attachments")
}

// Downloader retrieves files from signed URLs.
type Downloader struct {
	Dir        string
	HTTPClient *http.Client
}

// NewDownloader creates a downloader writing into dir, or DefaultDir when
// dir is empty.
func NewDownloader(dir string) *Downloader {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Downloader{
		Dir:        dir,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Download fetches the signed URL and writes it to <dir>/<id><ext>, where
// ext comes from the URL path (query stripped), defaulting to ".jpg".
// Returns the local path and the number of bytes written.
func (d *Downloader) Download(ctx context.Context, signedURL, attachmentID string) (string, int64, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("unable to create download directory: %w", err)
	}

	localPath := filepath.Join(d.Dir, attachmentID+extFromURL(signedURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("unable to create download request: %w", err)
	}
	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("unable to create file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		os.Remove(localPath)
		return "", 0, fmt.Errorf("download failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("unable to close file: %w", err)
	}
	return localPath, n, nil
}

// extFromURL infers a file extension from the URL path, ignoring the query
// string. Attachments are typically images, so .jpg is the fallback.
func extFromURL(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	} else if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		name = rawURL[:i]
	}
	if ext := path.Ext(path.Base(name)); ext != "" {
		return ext
	}
	return ".jpg"
}
