// Package companion 提供版本服务：把 Mojang 版本清单转换为 /versions 与 /version/{id} 两个接口。
package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/liangyou/mcversion/pkg/models"
)

// DefaultListenAddr 是版本服务的默认监听地址。
const DefaultListenAddr = "127.0.0.1:15608"

const shutdownTimeout = 5 * time.Second

// Option 用于配置 Server。
type Option func(*Server)

// WithHTTPClient 设置访问上游所用的 HTTP 客户端。
func WithHTTPClient(client HTTPClient) Option {
	return func(s *Server) {
		if client != nil {
			s.client = client
		}
	}
}

// WithManifestURL 设置清单地址。
func WithManifestURL(url string) Option {
	return func(s *Server) {
		if url != "" {
			s.manifestURL = url
		}
	}
}

// WithWikiBase 设置 wiki 页面前缀，版本号直接拼接在后面。
func WithWikiBase(base string) Option {
	return func(s *Server) {
		if base != "" {
			s.wikiBase = base
		}
	}
}

// WithCacheTTL 设置清单缓存时间。
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// Server 是版本服务。
type Server struct {
	client      HTTPClient
	manifestURL string
	wikiBase    string
	cacheTTL    time.Duration

	upstream *Upstream
	metrics  *Metrics
	router   *mux.Router
}

// NewServer 创建版本服务。
func NewServer(opts ...Option) *Server {
	s := &Server{
		client:      &http.Client{Timeout: time.Minute},
		manifestURL: DefaultManifestURL,
		wikiBase:    defaultWikiBase,
		cacheTTL:    DefaultCacheTTL,
		metrics:     NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upstream = newUpstream(s.client, s.manifestURL, s.wikiBase, s.cacheTTL, s.metrics)

	r := mux.NewRouter()
	r.Use(s.metrics.Middleware)
	r.HandleFunc("/versions", s.handleVersions).Methods(http.MethodGet)
	r.HandleFunc("/version/{versionId}", s.handleVersion).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler 返回 HTTP 处理器。
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe 监听地址并服务，直到 ctx 取消。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultListenAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("companion: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定监听器上服务，ctx 取消后优雅关闭。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Infof("Minecraft API server running at http://%s/", ln.Addr())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("companion: shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("companion: serve: %w", err)
	}
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.upstream.Manifest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]string, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["versionId"]

	entry, found, err := s.upstream.Lookup(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Version not found")
		return
	}

	meta, err := s.upstream.VersionMeta(ctx, entry.URL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	javaVersion := "unknown"
	if meta.JavaVersion != nil && meta.JavaVersion.MajorVersion != 0 {
		javaVersion = strconv.Itoa(meta.JavaVersion.MajorVersion)
	}

	if meta.Downloads.Client == nil || meta.Downloads.Client.URL == "" {
		writeError(w, http.StatusNotFound, "Client JAR not available")
		return
	}
	clientURL := meta.Downloads.Client.URL

	datapack, err := s.upstream.DatapackVersion(ctx, clientURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	wiki := s.upstream.Wiki(ctx, entry.ID)

	serverURL := "Server jar not available"
	if meta.Downloads.Server != nil && meta.Downloads.Server.URL != "" {
		serverURL = meta.Downloads.Server.URL
	}

	detail := models.Version{
		ID:                   entry.ID,
		Type:                 entry.Type,
		JavaVersion:          javaVersion,
		DatapackVersion:      datapack,
		ResourcePackVersion:  orDefault(wiki.ResourcePackVersion, "Not available"),
		UpdateTitle:          orDefault(wiki.Title, "No update title available"),
		ReleaseTime:          meta.ReleaseTime,
		ReleaseTimeFormatted: formatReleaseTime(meta.ReleaseTime),
		ClientURL:            clientURL,
		ServerURL:            serverURL,
		WikiURL:              s.upstream.wikiURL(entry.ID),
	}
	writeJSON(w, http.StatusOK, detail)
}

func formatReleaseTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debugf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
