// Package session stores per-viewer collapse state for served graphs.
//
// A [View] is one viewer's root and set of collapsed nodes for one named
// graph. The service creates a view when a client opens a graph and updates
// it on every toggle, so collapse state survives reconnects and, with the
// Redis backend, restarts and multiple instances.
//
// Backends:
//   - [MemoryStore]: in-process map for tests and single-instance serving
//   - [FileStore]: JSON files for the CLI and small deployments
//   - [RedisStore]: shared storage with native key expiry
//
// # Usage
//
//	view := session.NewView("forum", "srvr-1", session.DefaultTTL)
//	if err := store.Set(ctx, view); err != nil {
//	    return err
//	}
//
//	view, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if view == nil {
//	    // not found or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/forumgraph/pkg/visibility"
)

// DefaultTTL is how long an untouched view is kept.
const DefaultTTL = 24 * time.Hour

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned by Lookup for a missing or expired view.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid view id")
)

// View is one viewer's collapse state for one graph.
type View struct {
	ID        string    `json:"id"`
	Graph     string    `json:"graph"`
	Root      string    `json:"root"`
	Collapsed []string  `json:"collapsed"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewView creates an all-expanded view with a fresh random id.
func NewView(graphName, root string, ttl time.Duration) *View {
	now := time.Now().UTC()
	return &View{
		ID:        uuid.NewString(),
		Graph:     graphName,
		Root:      root,
		Collapsed: []string{},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the view has expired.
func (v *View) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

// Touch pushes the expiry ttl into the future.
func (v *View) Touch(ttl time.Duration) {
	v.ExpiresAt = time.Now().UTC().Add(ttl)
}

// State returns the view's collapse state.
func (v *View) State() visibility.State {
	return visibility.NewState(v.Collapsed...)
}

// SetState replaces the collapsed list with the ids collapsed in s.
func (v *View) SetState(s visibility.State) {
	v.Collapsed = s.CollapsedIDs()
}

// ValidateID rejects ids that could not have come from [NewView].
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// Lookup is [Store.Get] for callers that need a view: a malformed id yields
// ErrInvalidID and a missing or expired view yields ErrNotFound.
func Lookup(ctx context.Context, s Store, id string) (*View, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// Store is the interface for view storage backends.
type Store interface {
	// Get retrieves a view by ID.
	// Returns nil, nil if the view doesn't exist or has expired.
	Get(ctx context.Context, id string) (*View, error)

	// Set stores a view, replacing any previous version.
	Set(ctx context.Context, view *View) error

	// Delete removes a view. Deleting a missing view is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired views (may be a no-op for Redis).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
