// Package visibility computes which part of a forum graph is currently shown.
//
// Users collapse and expand nodes (typically by right-clicking them in the
// renderer). A collapsed node stays visible but hides everything below it.
// This package turns the full graph plus the collapse state into the
// visible subgraph handed back to the renderer.
//
// # Overview
//
// Work happens in two steps:
//
//  1. [Index] builds an arena of nodes addressed by integer position and, for
//     every node, the ordered list of its outgoing links (its child links).
//     Links whose endpoints do not resolve are skipped and reported through
//     [Indexed.Dangling].
//  2. [Indexed.Visible] walks depth-first from a root, emitting each node and,
//     unless the node is collapsed, all of its child links before descending
//     into their targets.
//
// Collapse state is not stored on nodes. It lives in a [State], a plain
// id → collapsed mapping owned by the caller, so one index can serve many
// viewers at once.
//
// # Usage
//
//	ix, err := visibility.Index(g, visibility.WithLogger(logger))
//	if err != nil {
//	    return err // duplicate or empty node ids
//	}
//	state := visibility.StateFromGraph(g)
//
//	visible, err := ix.Visible("srvr-1", state)
//
//	// On "node right-clicked":
//	state.Toggle(nodeID)
//	visible, err = ix.Visible("srvr-1", state)
//
// # Shared Descendants
//
// The hierarchy is expected to be a tree: each node has at most one parent
// link. When it is not, the walk still emits every child link of every
// expanded visible node, but each node is emitted and descended only once.
// On tree input this is the same as a plain recursive walk, and cyclic reply
// chains cannot make it loop.
//
// # Concurrency
//
// An [Indexed] is immutable after [Index] returns and is safe for concurrent
// use. A [State] is a map and must not be mutated concurrently.
package visibility
