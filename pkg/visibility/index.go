package visibility

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// Indexed is a graph arranged for visibility queries.
//
// Nodes and links are kept in input order. children[i] lists the positions of
// node i's outgoing links, in the original relative order of the link list.
type Indexed struct {
	nodes    []graph.Node
	links    []graph.Link
	byID     map[string]int
	children [][]int
	targets  []int // link position -> target node position
	indegree []int
	dangling []*errors.DanglingReference
}

// Option configures [Index].
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger reports dangling links on l at warn level.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Index builds the child-link index for g.
//
// Every link whose source and target both resolve is appended to the source
// node's child links. A link with an unknown endpoint is skipped and recorded
// as a [errors.DanglingReference]; indexing continues. Index returns an
// INVALID_GRAPH error only when node ids are empty or duplicated.
//
// g is copied, so later changes to g do not affect the index, and indexing
// the same graph again yields an identical index.
func Index(g graph.Graph, opts ...Option) (*Indexed, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	ix := &Indexed{
		nodes:    make([]graph.Node, len(g.Nodes)),
		byID:     make(map[string]int, len(g.Nodes)),
		children: make([][]int, len(g.Nodes)),
		indegree: make([]int, len(g.Nodes)),
	}
	copy(ix.nodes, g.Nodes)
	for i, n := range ix.nodes {
		ix.nodes[i].Collapsed = false
		ix.byID[n.ID] = i
	}

	for i, l := range g.Links {
		src, srcOK := ix.byID[l.Source.ID()]
		dst, dstOK := ix.byID[l.Target.ID()]
		if !srcOK || !dstOK {
			ref := &errors.DanglingReference{
				Index:  i,
				Source: l.Source.ID(),
				Target: l.Target.ID(),
				Field:  "source",
			}
			if srcOK {
				ref.Field = "target"
			}
			ix.dangling = append(ix.dangling, ref)
			if o.logger != nil {
				o.logger.Warn("Skipping dangling link", "link", i, "source", ref.Source, "target", ref.Target, "missing", ref.Field)
			}
			continue
		}

		pos := len(ix.links)
		ix.links = append(ix.links, l)
		ix.targets = append(ix.targets, dst)
		ix.children[src] = append(ix.children[src], pos)
		ix.indegree[dst]++
	}

	return ix, nil
}

// Len returns the number of nodes.
func (ix *Indexed) Len() int { return len(ix.nodes) }

// LinkCount returns the number of indexed (resolved) links.
func (ix *Indexed) LinkCount() int { return len(ix.links) }

// Dangling returns the links skipped during indexing, in input order.
func (ix *Indexed) Dangling() []*errors.DanglingReference { return ix.dangling }

// Has reports whether a node with the given id exists.
func (ix *Indexed) Has(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Node returns the node with the given id.
func (ix *Indexed) Node(id string) (graph.Node, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return graph.Node{}, false
	}
	return ix.nodes[i], true
}

// Nodes returns a copy of all nodes in input order.
func (ix *Indexed) Nodes() []graph.Node {
	out := make([]graph.Node, len(ix.nodes))
	copy(out, ix.nodes)
	return out
}

// ChildLinks returns the outgoing links of id in input order, or nil if the
// node is unknown or has none.
func (ix *Indexed) ChildLinks(id string) []graph.Link {
	i, ok := ix.byID[id]
	if !ok || len(ix.children[i]) == 0 {
		return nil
	}
	out := make([]graph.Link, len(ix.children[i]))
	for j, li := range ix.children[i] {
		out[j] = ix.links[li]
	}
	return out
}

// Children returns the target ids of id's child links in order.
func (ix *Indexed) Children(id string) []string {
	i, ok := ix.byID[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ix.children[i]))
	for _, li := range ix.children[i] {
		out = append(out, ix.nodes[ix.targets[li]].ID)
	}
	return out
}

// Roots returns the ids of nodes without incoming links, in input order.
// A well-formed forum graph has exactly one: the server node.
func (ix *Indexed) Roots() []string {
	var roots []string
	for i, n := range ix.nodes {
		if ix.indegree[i] == 0 {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// DefaultRoot returns the first root, falling back to the first node when
// every node has a parent (a cycle). ok is false for an empty graph.
func (ix *Indexed) DefaultRoot() (id string, ok bool) {
	if roots := ix.Roots(); len(roots) > 0 {
		return roots[0], true
	}
	if len(ix.nodes) > 0 {
		return ix.nodes[0].ID, true
	}
	return "", false
}
