package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// ProgressFunc 在下载过程中回调当前已完成的字节数以及总字节数。
type ProgressFunc func(downloaded, total int64)

// HTTPClient 定义 Downloader 所需的 HTTP 客户端能力。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Artifact 描述要下载安装的可执行文件。
type Artifact struct {
	URL      string
	FileName string
	Checksum string // 可选的 SHA256，十六进制
}

// Downloader 负责把可执行文件下载到临时文件并进行校验。
type Downloader struct {
	httpClient   HTTPClient
	downloadsDir string
	progressFunc ProgressFunc
}

// DownloaderOption 配置 Downloader。
type DownloaderOption func(*Downloader)

// WithHTTPClient 指定自定义 HTTP 客户端。
func WithHTTPClient(client HTTPClient) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithDownloadsDir 指定临时文件所在目录。
func WithDownloadsDir(dir string) DownloaderOption {
	return func(d *Downloader) {
		if dir != "" {
			d.downloadsDir = dir
		}
	}
}

// WithProgressFunc 指定进度回调。
func WithProgressFunc(fn ProgressFunc) DownloaderOption {
	return func(d *Downloader) {
		d.progressFunc = fn
	}
}

// NewDownloader 创建 Downloader，默认下载到系统临时目录。
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient:   http.DefaultClient,
		downloadsDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download 下载到临时文件并返回其路径，调用方负责删除。
func (d *Downloader) Download(ctx context.Context, artifact Artifact) (string, error) {
	if strings.TrimSpace(artifact.URL) == "" {
		return "", errors.New("downloader: download url is required")
	}
	if err := os.MkdirAll(d.downloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("downloader: create dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.URL, nil)
	if err != nil {
		return "", fmt.Errorf("downloader: build request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloader: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloader: unexpected status %d", resp.StatusCode)
	}

	tempFile, err := os.CreateTemp(d.downloadsDir, "mcversion-download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("downloader: temp file: %w", err)
	}
	tempPath := tempFile.Name()
	keep := false
	defer func() {
		tempFile.Close()
		if !keep {
			os.Remove(tempPath)
		}
	}()

	hasher := sha256.New()
	reader := io.TeeReader(d.wrapProgress(resp.Body, resp.ContentLength), hasher)

	if _, err := io.Copy(tempFile, reader); err != nil {
		return "", fmt.Errorf("downloader: write file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return "", fmt.Errorf("downloader: sync file: %w", err)
	}

	if err := verifyChecksum(hex.EncodeToString(hasher.Sum(nil)), artifact.Checksum); err != nil {
		return "", err
	}

	keep = true
	return tempPath, nil
}

func (d *Downloader) wrapProgress(reader io.Reader, total int64) io.Reader {
	if d.progressFunc == nil {
		return reader
	}
	return &progressReader{r: reader, total: total, report: d.progressFunc}
}

func verifyChecksum(actual, expected string) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return nil
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("downloader: checksum mismatch, got %s want %s", actual, expected)
	}
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(p.read, p.total)
	}
	return n, err
}
