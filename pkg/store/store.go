package store

import (
	"context"

	"github.com/matzehuels/forumgraph/pkg/graph"
)

// Store is the interface for graph storage backends.
type Store interface {
	// Load returns the named graph, or a NOT_FOUND error.
	Load(ctx context.Context, name string) (graph.Graph, error)

	// Save validates g and stores it under name, replacing any previous graph.
	Save(ctx context.Context, name string, g graph.Graph) error

	// List returns the stored graph names in sorted order.
	List(ctx context.Context) ([]string, error)

	// Delete removes the named graph, or returns a NOT_FOUND error.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
