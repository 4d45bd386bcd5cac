// Package pkg provides the core libraries for forumgraph.
//
// # Overview
//
// Forumgraph shows chat and forum hierarchies (servers, categories, channels,
// threads, messages) as force-directed graphs whose nodes can be collapsed.
// A collapsed node stays on screen while everything below it is hidden; the
// visible subgraph is recomputed from scratch after every change.
//
// # Architecture
//
// The typical data flow:
//
//	JSON graph file / MongoDB
//	         ↓
//	    [graph] package (decode nodes and links)
//	         ↓
//	    [visibility] package (index child links, compute visible subgraph)
//	         ↓
//	    [render/nodelink] or [server] (Graphviz output, HTTP + WebSocket views)
//
// # Quick Start
//
//	g, _ := graph.ReadGraphFile("forum.json")
//	ix, _ := visibility.Index(g)
//	root, _ := ix.DefaultRoot()
//
//	state := visibility.NewState()
//	state.Toggle("cat-1")
//	visible, _ := ix.Visible(root, state)
//
//	dot := nodelink.ToDOT(visible, display.Default(), nodelink.Options{})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [graph] - Node and link types and the JSON wire format. Link endpoints
// decode from plain ids or embedded node objects.
//
// [visibility] - The child-link index and the visible-subgraph walk, plus
// the collapse state kept apart from the graph.
//
// [display] - Renderer parameters loaded from TOML, the link-distance and
// node-size heuristics, and discrete config update events.
//
// [render/nodelink] - Graphviz DOT and SVG output for visible subgraphs.
//
// [generate] - Synthetic forum graphs for demos and tests.
//
// ## Infrastructure
//
// [store] - Named graph storage in a directory of JSON files or MongoDB.
//
// [session] - Views (a root plus a collapse state) in memory, files or Redis.
//
// [cache] - Content-addressed render cache.
//
// [server] - chi HTTP API with WebSocket event streams and a directory watcher.
//
// [observability] - Hook interfaces with a Prometheus implementation.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
// Run tests:
//
//	go test ./...                        # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/graph
// [visibility]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/visibility
// [display]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/display
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/render/nodelink
// [generate]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/generate
// [store]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/store
// [session]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/session
// [cache]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/cache
// [server]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/forumgraph/pkg/errors
package pkg
