package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/session"
	"github.com/matzehuels/forumgraph/pkg/store"
	"github.com/matzehuels/forumgraph/pkg/visibility"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = 10 * time.Minute
	viewLockStripes = 64
)

// Config wires the server's collaborators. Store is required; everything
// else has a default.
type Config struct {
	Addr     string
	Store    store.Store
	Sessions session.Store
	Display  *display.Live
	Logger   *log.Logger
	// Metrics serves /metrics; nil falls back to the default registry.
	Metrics *observability.Prometheus
	ViewTTL time.Duration
	// Watch enables live reload for directory stores.
	Watch bool
}

// Server is the HTTP service.
type Server struct {
	cfg    Config
	logger *log.Logger
	hub    *hub

	mu     sync.RWMutex
	graphs map[string]*entry

	viewLocks [viewLockStripes]sync.Mutex
}

// entry is an indexed graph plus the collapse state its file seeds.
type entry struct {
	ix      *visibility.Indexed
	initial visibility.State
}

// New creates a server. It does not start listening; see [Server.Run].
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryStore()
	}
	if cfg.Display == nil {
		cfg.Display = display.NewLive(display.Default())
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = session.DefaultTTL
	}
	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		hub:    newHub(),
		graphs: make(map[string]*entry),
	}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if dir, ok := s.cfg.Store.(*store.DirStore); ok && s.cfg.Watch {
		w, err := newWatcher(s, dir)
		if err != nil {
			return err
		}
		defer w.Close()
		go w.run(ctx)
	}
	s.relayDisplay(ctx)
	go s.cleanupLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// relayDisplay subscribes to display updates and broadcasts each one to
// every connected client until ctx is done. The subscription is registered
// before it returns.
func (s *Server) relayDisplay(ctx context.Context) {
	events, cancel := s.cfg.Display.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.hub.broadcast(displayMessage(s.cfg.Display.Current(), ev))
			}
		}
	}()
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.cfg.Sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("View cleanup failed", "err", err)
			}
		}
	}
}

// =============================================================================
// Indexed Graph Cache
// =============================================================================

// indexed returns the cached index for name, loading it on first use.
func (s *Server) indexed(ctx context.Context, name string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.graphs[name]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}
	return s.reindex(ctx, name)
}

// reindex loads name from the store and replaces its cached index.
func (s *Server) reindex(ctx context.Context, name string) (*entry, error) {
	g, err := s.cfg.Store.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ix, err := visibility.Index(g, visibility.WithLogger(s.logger.With("graph", name)))
	if err != nil {
		return nil, err
	}
	observability.Visibility().OnIndex(ctx, name, ix.Len(), ix.LinkCount(), len(ix.Dangling()), time.Since(start))

	e := &entry{ix: ix, initial: visibility.StateFromGraph(g)}
	s.mu.Lock()
	s.graphs[name] = e
	s.mu.Unlock()
	s.logger.Debug("Indexed graph", "graph", name, "nodes", ix.Len(), "links", ix.LinkCount())
	return e, nil
}

// forget drops name from the cache.
func (s *Server) forget(name string) {
	s.mu.Lock()
	delete(s.graphs, name)
	s.mu.Unlock()
}

// =============================================================================
// View Operations
// =============================================================================

// viewLock returns the mutex serializing updates to view id.
func (s *Server) viewLock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.viewLocks[h.Sum32()%viewLockStripes]
}

// loadView returns the view and its graph index, or NOT_FOUND.
func (s *Server) loadView(ctx context.Context, id string) (*session.View, *entry, error) {
	v, err := session.Lookup(ctx, s.cfg.Sessions, id)
	switch {
	case stderrors.Is(err, session.ErrNotFound), stderrors.Is(err, session.ErrInvalidID):
		return nil, nil, errors.New(errors.ErrCodeNotFound, "view %q not found", id)
	case err != nil:
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "load view")
	}
	e, err := s.indexed(ctx, v.Graph)
	if err != nil {
		return nil, nil, err
	}
	return v, e, nil
}

// visible computes the view's visible subgraph and reports it to the hooks.
func (s *Server) visible(ctx context.Context, v *session.View, e *entry) (graph.Graph, error) {
	start := time.Now()
	g, err := e.ix.Visible(v.Root, v.State())
	observability.Visibility().OnVisible(ctx, v.Graph, g.NodeCount(), time.Since(start), err)
	return g, err
}

// createView opens a view on graphName. An empty root selects the graph's
// first root; depth, when non-nil, collapses everything below that depth.
func (s *Server) createView(ctx context.Context, graphName, root string, depth *int) (*session.View, graph.Graph, error) {
	e, err := s.indexed(ctx, graphName)
	if err != nil {
		return nil, graph.Graph{}, err
	}
	if root == "" {
		var ok bool
		if root, ok = e.ix.DefaultRoot(); !ok {
			return nil, graph.Graph{}, errors.New(errors.ErrCodeInvalidInput, "graph %q has no nodes", graphName)
		}
	}
	if !e.ix.Has(root) {
		return nil, graph.Graph{}, errors.New(errors.ErrCodeNotFound, "root node %q", root)
	}

	state := e.initial.Clone()
	if depth != nil {
		state.CollapseDepth(e.ix, root, *depth)
	}
	v := session.NewView(graphName, root, s.cfg.ViewTTL)
	v.SetState(state)

	g, err := s.visible(ctx, v, e)
	if err != nil {
		return nil, graph.Graph{}, err
	}
	if err := s.cfg.Sessions.Set(ctx, v); err != nil {
		return nil, graph.Graph{}, errors.Wrap(errors.ErrCodeInternal, err, "save view")
	}
	s.logger.Debug("Created view", "view", v.ID, "graph", graphName, "root", root)
	return v, g, nil
}

// update applies fn to the view's state under the view lock, persists the
// view, and pushes the recomputed subgraph to its subscribers.
func (s *Server) update(ctx context.Context, id string, fn func(*entry, visibility.State) error) (*session.View, graph.Graph, error) {
	mu := s.viewLock(id)
	mu.Lock()
	defer mu.Unlock()

	v, e, err := s.loadView(ctx, id)
	if err != nil {
		return nil, graph.Graph{}, err
	}
	state := v.State()
	if err := fn(e, state); err != nil {
		return nil, graph.Graph{}, err
	}
	v.SetState(state)
	v.Touch(s.cfg.ViewTTL)

	g, err := s.visible(ctx, v, e)
	if err != nil {
		return nil, graph.Graph{}, err
	}
	if err := s.cfg.Sessions.Set(ctx, v); err != nil {
		return nil, graph.Graph{}, errors.Wrap(errors.ErrCodeInternal, err, "save view")
	}
	s.hub.sendView(id, visibleMessage(v, g))
	return v, g, nil
}

// toggle flips node's collapse state in view id.
func (s *Server) toggle(ctx context.Context, id, node string) (*session.View, graph.Graph, error) {
	if err := errors.ValidateNodeID(node); err != nil {
		return nil, graph.Graph{}, err
	}
	var collapsed bool
	v, g, err := s.update(ctx, id, func(e *entry, state visibility.State) error {
		if !e.ix.Has(node) {
			return errors.New(errors.ErrCodeNotFound, "node %q", node)
		}
		collapsed = state.Toggle(node)
		return nil
	})
	if err != nil {
		return nil, graph.Graph{}, err
	}
	observability.Visibility().OnToggle(ctx, v.Graph, node, collapsed)
	s.logger.Debug("Toggled node", "view", id, "node", node, "collapsed", collapsed)
	return v, g, nil
}

// expandAll clears view id's collapse state.
func (s *Server) expandAll(ctx context.Context, id string) (*session.View, graph.Graph, error) {
	return s.update(ctx, id, func(_ *entry, state visibility.State) error {
		state.ExpandAll()
		return nil
	})
}

// refreshGraph re-indexes name and pushes new subgraphs to its subscribers.
func (s *Server) refreshGraph(ctx context.Context, name string) {
	if _, err := s.reindex(ctx, name); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			s.forget(name)
			s.logger.Info("Graph removed", "graph", name)
			return
		}
		s.logger.Warn("Reindex failed", "graph", name, "err", err)
		return
	}
	s.logger.Info("Graph reloaded", "graph", name)

	for _, id := range s.hub.viewsOf(name) {
		v, e, err := s.loadView(ctx, id)
		if err != nil {
			continue
		}
		g, err := s.visible(ctx, v, e)
		if err != nil {
			// The view's root vanished from the new file.
			s.hub.sendView(id, errorMessage(err))
			continue
		}
		s.hub.sendView(id, visibleMessage(v, g))
	}
}
