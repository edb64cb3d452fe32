package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestDownloaderDownloadSuccess(t *testing.T) {
	t.Parallel()

	payload := []byte("mcversion binary")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	downloadsDir := filepath.Join(t.TempDir(), "downloads")
	var lastProgress int64
	dl := NewDownloader(
		WithHTTPClient(server.Client()),
		WithDownloadsDir(downloadsDir),
		WithProgressFunc(func(done, total int64) {
			atomic.StoreInt64(&lastProgress, done)
		}),
	)

	path, err := dl.Download(context.Background(), Artifact{
		URL:      server.URL,
		Checksum: hex.EncodeToString(sum[:]),
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if filepath.Dir(path) != downloadsDir {
		t.Fatalf("expected temp file under %s, got %s", downloadsDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("unexpected content: %q", data)
	}
	if got := atomic.LoadInt64(&lastProgress); got != int64(len(payload)) {
		t.Fatalf("unexpected progress: %d", got)
	}
}

func TestDownloaderSkipsChecksumWhenUnset(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("anything"))
	}))
	defer server.Close()

	dl := NewDownloader(WithHTTPClient(server.Client()), WithDownloadsDir(t.TempDir()))
	if _, err := dl.Download(context.Background(), Artifact{URL: server.URL}); err != nil {
		t.Fatalf("expected success without checksum, got %v", err)
	}
}

func TestDownloaderChecksumMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bad sum"))
	}))
	defer server.Close()

	dir := t.TempDir()
	dl := NewDownloader(WithHTTPClient(server.Client()), WithDownloadsDir(dir))

	if _, err := dl.Download(context.Background(), Artifact{URL: server.URL, Checksum: "0000"}); err == nil {
		t.Fatal("expected checksum error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp file to be removed, found %d entries", len(entries))
	}
}

func TestDownloaderHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dl := NewDownloader(WithHTTPClient(server.Client()), WithDownloadsDir(t.TempDir()))
	if _, err := dl.Download(context.Background(), Artifact{URL: server.URL}); err == nil {
		t.Fatal("expected status error")
	}
}

func TestDownloaderRequiresURL(t *testing.T) {
	t.Parallel()

	dl := NewDownloader(WithDownloadsDir(t.TempDir()))
	if _, err := dl.Download(context.Background(), Artifact{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}
