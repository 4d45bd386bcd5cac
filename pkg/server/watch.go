package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/forumgraph/pkg/store"
)

const debouncePeriod = 300 * time.Millisecond

// watcher reloads graphs whose files change in a directory store. Bursts of
// events for the same file collapse into one reload.
type watcher struct {
	server *Server
	dir    *store.DirStore
	fs     *fsnotify.Watcher
	period time.Duration
	reload func(ctx context.Context, name string)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func newWatcher(s *Server, dir *store.DirStore) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir.Dir(), err)
	}
	return &watcher{
		server:  s,
		dir:     dir,
		fs:      fw,
		period:  debouncePeriod,
		reload:  s.refreshGraph,
		pending: make(map[string]*time.Timer),
	}, nil
}

func (w *watcher) run(ctx context.Context) {
	w.server.logger.Info("Watching graphs", "dir", w.dir.Dir())
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, ok := w.dir.NameFromPath(event.Name)
			if !ok {
				continue
			}
			w.server.logger.Debug("Graph file changed", "graph", name, "op", event.Op.String())
			w.schedule(ctx, name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.server.logger.Warn("Watcher error", "err", err)
		}
	}
}

// schedule (re)starts the debounce timer for name.
func (w *watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.period, func() { w.fire(ctx, name, t) })
	w.pending[name] = t
}

// fire runs the reload for name. The pending entry is cleared only while it
// still holds t, so a timer firing as schedule re-arms keeps the newer one.
func (w *watcher) fire(ctx context.Context, name string, t *time.Timer) {
	w.mu.Lock()
	if w.pending[name] == t {
		delete(w.pending, name)
	}
	w.mu.Unlock()
	if ctx.Err() == nil {
		w.reload(ctx, name)
	}
}

func (w *watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
}

func (w *watcher) Close() error {
	return w.fs.Close()
}
