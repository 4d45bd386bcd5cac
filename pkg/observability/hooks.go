// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without threading a metrics
// backend through every API. Consumers register hooks at startup to receive
// events about indexing, visible-subgraph computation, render caching, and
// the HTTP service.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The engine in pkg/visibility stays free of instrumentation; its callers
// (the CLI and the server) emit the events. [Prometheus] implements every
// interface and backs the service's /metrics endpoint.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    metrics := observability.NewPrometheus(prometheus.NewRegistry())
//	    observability.Register(metrics)
//	    // ... run application
//	}
//
// Callers emit events:
//
//	start := time.Now()
//	visible, err := ix.Visible(root, state)
//	observability.Visibility().OnVisible(ctx, name, visible.NodeCount(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Visibility Hooks
// =============================================================================

// VisibilityHooks receives events from graph indexing and traversal.
type VisibilityHooks interface {
	// OnIndex records a graph being indexed.
	OnIndex(ctx context.Context, graph string, nodes, links, dangling int, duration time.Duration)

	// OnVisible records a visible-subgraph computation.
	OnVisible(ctx context.Context, graph string, visibleNodes int, duration time.Duration, err error)

	// OnToggle records a collapse toggle.
	OnToggle(ctx context.Context, graph, node string, collapsed bool)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP service.
type HTTPHooks interface {
	// OnResponse records a served request by route pattern.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)

	// OnSubscribers records the number of connected event-stream clients.
	OnSubscribers(ctx context.Context, count int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopVisibilityHooks is a no-op implementation of VisibilityHooks.
type NoopVisibilityHooks struct{}

func (NoopVisibilityHooks) OnIndex(context.Context, string, int, int, int, time.Duration) {}
func (NoopVisibilityHooks) OnVisible(context.Context, string, int, time.Duration, error)  {}
func (NoopVisibilityHooks) OnToggle(context.Context, string, string, bool)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnSubscribers(context.Context, int)                             {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	visibilityHooks VisibilityHooks = NoopVisibilityHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetVisibilityHooks registers custom visibility hooks.
// This should be called once at application startup.
func SetVisibilityHooks(h VisibilityHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		visibilityHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Register installs h for every hook interface it implements.
func Register(h any) {
	if v, ok := h.(VisibilityHooks); ok {
		SetVisibilityHooks(v)
	}
	if c, ok := h.(CacheHooks); ok {
		SetCacheHooks(c)
	}
	if x, ok := h.(HTTPHooks); ok {
		SetHTTPHooks(x)
	}
}

// Visibility returns the registered visibility hooks.
func Visibility() VisibilityHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return visibilityHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	visibilityHooks = NoopVisibilityHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
