package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"png with query", "https://cdn.example.com/photos/cat.png?sig=abc&exp=123", ".png"},
		{"pdf no query", "https://cdn.example.com/doc.pdf", ".pdf"},
		{"no extension", "https://cdn.example.com/blob", ".jpg"},
		{"dotted query only", "https://cdn.example.com/blob?name=a.png", ".jpg"},
		{"nested path", "https://cdn.example.com/a/b/c/shot.jpeg?x=1", ".jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extFromURL(tt.url); got != tt.want {
				t.Errorf("extFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestDownloadWritesFile(t *testing.T) {
	content := []byte("fake image bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir())
	localPath, n, err := d.Download(context.Background(), srv.URL+"/img.png?sig=abc", "att-42")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if filepath.Base(localPath) != "att-42.png" {
		t.Errorf("local path = %s, want att-42.png", localPath)
	}
	if n != int64(len(content)) {
		t.Errorf("wrote %d bytes, want %d", n, len(content))
	}
	got, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("file content = %q", got)
	}
}

func TestDownloadHTTPErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDownloader(t.TempDir())
	if _, _, err := d.Download(context.Background(), srv.URL+"/img.png", "att-1"); err == nil {
		t.Fatal("expected error for HTTP 403")
	}

	// Nothing should be left behind.
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("unexpected leftover files: %v", entries)
	}
}
