package companion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultManifestURL 是 Mojang 官方版本清单。
	DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	// DefaultCacheTTL 是清单缓存时间。
	DefaultCacheTTL = 5 * time.Minute

	defaultWikiBase = "https://minecraft.wiki/w/Java_Edition_"
	manifestKey     = "manifest"
	maxJSONSize     = 16 << 20
	maxJarSize      = 256 << 20
)

// HTTPClient 描述最小化的 HTTP 客户端接口，方便测试时替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ManifestEntry 是版本清单中的一条记录。
type ManifestEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Time        string `json:"time"`
	ReleaseTime string `json:"releaseTime"`
}

type manifestDoc struct {
	Versions []ManifestEntry `json:"versions"`
}

// versionMeta 是单个版本的元数据文件中用到的字段。
type versionMeta struct {
	JavaVersion *struct {
		MajorVersion int `json:"majorVersion"`
	} `json:"javaVersion"`
	Downloads struct {
		Client *download `json:"client"`
		Server *download `json:"server"`
	} `json:"downloads"`
	ReleaseTime string `json:"releaseTime"`
}

type download struct {
	URL string `json:"url"`
}

// Upstream 负责访问 Mojang 清单、客户端 jar 与 wiki 页面。
type Upstream struct {
	client      HTTPClient
	manifestURL string
	wikiBase    string
	cache       *cache.Cache
	metrics     *Metrics
}

func newUpstream(client HTTPClient, manifestURL, wikiBase string, ttl time.Duration, metrics *Metrics) *Upstream {
	// cleanupInterval 为 0 时不启动后台清理协程，过期项在读取时判定
	return &Upstream{
		client:      client,
		manifestURL: manifestURL,
		wikiBase:    wikiBase,
		cache:       cache.New(ttl, 0),
		metrics:     metrics,
	}
}

// Manifest 返回版本清单，命中缓存时不访问上游。
func (u *Upstream) Manifest(ctx context.Context) ([]ManifestEntry, error) {
	if cached, ok := u.cache.Get(manifestKey); ok {
		return cached.([]ManifestEntry), nil
	}

	u.metrics.manifestFetches.Inc()
	var doc manifestDoc
	if err := u.getJSON(ctx, u.manifestURL, &doc); err != nil {
		u.metrics.manifestErrors.Inc()
		return nil, fmt.Errorf("companion: load manifest: %w", err)
	}

	u.cache.Set(manifestKey, doc.Versions, cache.DefaultExpiration)
	return doc.Versions, nil
}

// Lookup 在清单中查找版本。
func (u *Upstream) Lookup(ctx context.Context, id string) (ManifestEntry, bool, error) {
	versions, err := u.Manifest(ctx)
	if err != nil {
		return ManifestEntry{}, false, err
	}
	for _, v := range versions {
		if v.ID == id {
			return v, true, nil
		}
	}
	return ManifestEntry{}, false, nil
}

// VersionMeta 获取版本元数据。
func (u *Upstream) VersionMeta(ctx context.Context, url string) (versionMeta, error) {
	var meta versionMeta
	if err := u.getJSON(ctx, url, &meta); err != nil {
		return meta, fmt.Errorf("companion: load version meta: %w", err)
	}
	return meta, nil
}

// DatapackVersion 下载客户端 jar 并读取 pack.mcmeta 中的 pack_format；找不到时返回 nil。
func (u *Upstream) DatapackVersion(ctx context.Context, jarURL string) (*int, error) {
	data, err := u.get(ctx, jarURL, maxJarSize)
	if err != nil {
		return nil, fmt.Errorf("companion: download client jar: %w", err)
	}
	format, err := readPackFormat(data)
	if err != nil {
		log.Warnf("unable to read pack format from %s: %v", jarURL, err)
		return nil, nil
	}
	return format, nil
}

// Wiki 抓取 wiki 页面中的更新标题与资源包格式。
func (u *Upstream) Wiki(ctx context.Context, id string) wikiInfo {
	data, err := u.get(ctx, u.wikiURL(id), maxJSONSize)
	if err != nil {
		log.Errorf("error scraping Minecraft Wiki: %v", err)
		return wikiInfo{Title: "Unknown"}
	}
	info, err := parseWikiInfo(bytes.NewReader(data))
	if err != nil {
		log.Errorf("error scraping Minecraft Wiki: %v", err)
		return wikiInfo{Title: "Unknown"}
	}
	return info
}

func (u *Upstream) wikiURL(id string) string {
	return u.wikiBase + id
}

func (u *Upstream) getJSON(ctx context.Context, url string, out any) error {
	data, err := u.get(ctx, url, maxJSONSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (u *Upstream) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

func readPackFormat(jar []byte) (*int, error) {
	reader, err := zip.NewReader(bytes.NewReader(jar), int64(len(jar)))
	if err != nil {
		return nil, fmt.Errorf("open jar: %w", err)
	}

	for _, file := range reader.File {
		if !strings.HasSuffix(file.Name, "pack.mcmeta") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}
		defer rc.Close()

		var meta struct {
			Pack *struct {
				PackFormat *int `json:"pack_format"`
			} `json:"pack"`
		}
		if err := json.NewDecoder(rc).Decode(&meta); err != nil {
			return nil, fmt.Errorf("decode %s: %w", file.Name, err)
		}
		if meta.Pack == nil {
			return nil, nil
		}
		return meta.Pack.PackFormat, nil
	}
	return nil, errors.New("pack.mcmeta not found")
}
