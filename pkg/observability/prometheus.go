package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forumgraph"

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	registry *prometheus.Registry

	indexed       *prometheus.CounterVec
	danglingLinks *prometheus.CounterVec
	visibleNodes  *prometheus.GaugeVec
	visibleTime   *prometheus.HistogramVec
	toggles       *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	subscribers  prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them on registry.
// A nil registry gets a fresh one, so tests never collide on the default.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	p := &Prometheus{
		registry: registry,
		indexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphs_indexed_total",
			Help:      "Total number of graph indexing runs",
		}, []string{"graph"}),
		danglingLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dangling_links_total",
			Help:      "Total number of links skipped for unknown endpoints",
		}, []string{"graph"}),
		visibleNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_nodes",
			Help:      "Node count of the most recent visible subgraph",
		}, []string{"graph"}),
		visibleTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "visible_duration_seconds",
			Help:      "Visible subgraph computation time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"graph", "status"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Total number of collapse toggles",
		}, []string{"graph", "state"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}, []string{"key_type"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}, []string{"key_type"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Total bytes written to the cache",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Connected event-stream clients",
		}),
	}
	registry.MustRegister(
		p.indexed, p.danglingLinks, p.visibleNodes, p.visibleTime, p.toggles,
		p.cacheHits, p.cacheMisses, p.cacheBytes,
		p.httpRequests, p.httpDuration, p.subscribers,
	)
	return p
}

// Registry returns the registry the collectors live on.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) OnIndex(_ context.Context, graph string, _, _, dangling int, _ time.Duration) {
	p.indexed.WithLabelValues(graph).Inc()
	p.danglingLinks.WithLabelValues(graph).Add(float64(dangling))
}

func (p *Prometheus) OnVisible(_ context.Context, graph string, visibleNodes int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		p.visibleNodes.WithLabelValues(graph).Set(float64(visibleNodes))
	}
	p.visibleTime.WithLabelValues(graph, status).Observe(d.Seconds())
}

func (p *Prometheus) OnToggle(_ context.Context, graph, _ string, collapsed bool) {
	state := "expanded"
	if collapsed {
		state = "collapsed"
	}
	p.toggles.WithLabelValues(graph, state).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheHits.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheMisses.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prometheus) OnSubscribers(_ context.Context, count int) {
	p.subscribers.Set(float64(count))
}

var (
	_ VisibilityHooks = (*Prometheus)(nil)
	_ CacheHooks      = (*Prometheus)(nil)
	_ HTTPHooks       = (*Prometheus)(nil)
)
