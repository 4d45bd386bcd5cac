package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/forumgraph/pkg/generate"
)

func TestWatcherDebouncesReloads(t *testing.T) {
	s, _, dir := newTestServer(t)
	w, err := newWatcher(s, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	reloads := make(chan string, 10)
	w.period = 100 * time.Millisecond
	w.reload = func(_ context.Context, name string) { reloads <- name }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.run(ctx)

	g := generate.Generate(generate.Options{Categories: 1})
	for range 3 {
		if err := dir.Save(ctx, "forum", g); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case name := <-reloads:
		if name != "forum" {
			t.Errorf("reloaded %q, want forum", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file change")
	}

	// The burst collapses into a single reload.
	select {
	case name := <-reloads:
		t.Errorf("unexpected second reload of %q", name)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	s, _, dir := newTestServer(t)
	w, err := newWatcher(s, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	reloads := make(chan string, 10)
	w.period = 20 * time.Millisecond
	w.reload = func(_ context.Context, name string) { reloads <- name }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.run(ctx)

	if err := os.WriteFile(filepath.Join(dir.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-reloads:
		t.Errorf("unexpected reload of %q", name)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStaleTimerKeepsNewer(t *testing.T) {
	reloads := make(chan string, 10)
	w := &watcher{
		period:  time.Hour,
		reload:  func(_ context.Context, name string) { reloads <- name },
		pending: make(map[string]*time.Timer),
	}
	ctx := context.Background()

	w.schedule(ctx, "forum")
	w.mu.Lock()
	stale := w.pending["forum"]
	w.mu.Unlock()

	w.schedule(ctx, "forum")
	w.mu.Lock()
	newer := w.pending["forum"]
	w.mu.Unlock()
	defer newer.Stop()

	// The stale timer fires after being replaced.
	w.fire(ctx, "forum", stale)
	if got := <-reloads; got != "forum" {
		t.Errorf("reloaded %q, want forum", got)
	}

	w.mu.Lock()
	got := w.pending["forum"]
	w.mu.Unlock()
	if got != newer {
		t.Error("stale timer removed the newer pending entry")
	}

	w.fire(ctx, "forum", newer)
	<-reloads
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending["forum"]; ok {
		t.Error("current timer should clear its pending entry")
	}
}
