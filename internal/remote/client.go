package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liangyou/mcversion/pkg/models"
)

const (
	// DefaultEndpoint 是内置版本服务的默认地址。
	DefaultEndpoint = "http://localhost:15608"
	DefaultTimeout  = 30 * time.Second
	maxBodySize     = 8 << 20
)

// ErrUnexpectedStatus 表示版本服务返回了非 200 状态码。
var ErrUnexpectedStatus = errors.New("unexpected status")

// VersionSource 定义版本服务应具备的能力。
type VersionSource interface {
	FetchVersions(ctx context.Context) (models.VersionSet, error)
	FetchVersion(ctx context.Context, id string) (models.Version, error)
}

// HTTPClient 描述最小化的 HTTP 客户端接口，方便测试时替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 用于配置 Client。
type Option func(*Client)

// WithBaseURL 设置版本服务地址。
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient 设置 HTTP 客户端。
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout 设置单次请求超时时间。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client 实现 VersionSource 接口。
type Client struct {
	baseURL    string
	httpClient HTTPClient
	timeout    time.Duration
}

// NewClient 创建版本服务客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultEndpoint,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 返回当前使用的服务地址。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchVersions 请求 {endpoint}/versions 并解析为版本集合。
func (c *Client) FetchVersions(ctx context.Context) (models.VersionSet, error) {
	var ids []string
	if err := c.getJSON(ctx, "/versions", &ids); err != nil {
		return nil, err
	}
	return models.NewVersionSet(ids...), nil
}

// FetchVersion 请求 {endpoint}/version/{id} 获取版本详情。
func (c *Client) FetchVersion(ctx context.Context, id string) (models.Version, error) {
	var version models.Version
	if strings.TrimSpace(id) == "" {
		return version, errors.New("remote: version id is required")
	}
	if err := c.getJSON(ctx, "/version/"+url.PathEscape(id), &version); err != nil {
		return version, err
	}
	return version, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: %w %d from %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("remote: read body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}
