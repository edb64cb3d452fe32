package companion

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇总版本服务的 Prometheus 指标，使用独立的 Registry。
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	manifestFetches prometheus.Counter
	manifestErrors  prometheus.Counter
}

// NewMetrics 创建并注册指标。
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcversion",
			Subsystem: "companion",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route template and status code.",
		}, []string{"route", "code"}),
		manifestFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcversion",
			Subsystem: "companion",
			Name:      "manifest_fetches_total",
			Help:      "Upstream manifest downloads (cache misses).",
		}),
		manifestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcversion",
			Subsystem: "companion",
			Name:      "manifest_fetch_errors_total",
			Help:      "Failed upstream manifest downloads.",
		}),
	}
	m.registry.MustRegister(m.requests, m.manifestFetches, m.manifestErrors)
	return m
}

// Handler 暴露 /metrics。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware 按路由模板统计请求数。
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
