// Package server exposes forum graphs over HTTP with live collapse state.
//
// # Overview
//
// Each client works through a view: a session holding a root node and a set
// of collapsed nodes for one named graph. Toggling a node recomputes the
// visible subgraph, returns it, and pushes it to every WebSocket subscriber
// of that view. Display parameter changes are pushed to all subscribers.
//
// # Routes
//
//	GET    /healthz
//	GET    /api/graphs
//	GET    /api/graphs/{graph}
//	POST   /api/graphs/{graph}/views
//	GET    /api/views/{view}
//	POST   /api/views/{view}/toggle/{node}
//	POST   /api/views/{view}/expand
//	GET    /api/views/{view}/events      (WebSocket)
//	GET    /api/display
//	PATCH  /api/display
//	GET    /metrics
//
// Errors are JSON objects {"code", "message"} using the codes of
// [github.com/matzehuels/forumgraph/pkg/errors].
//
// # Live Reload
//
// When the graph store is a [store.DirStore] and watching is enabled, the
// server watches the directory with fsnotify, re-indexes graphs whose files
// change, and pushes fresh visible subgraphs to their subscribers.
//
// # Concurrency
//
// Indexed graphs are cached under a RWMutex. Toggles on the same view are
// serialized so concurrent clicks never lose an update.
package server
