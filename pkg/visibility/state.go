package visibility

import (
	"maps"
	"slices"

	"github.com/matzehuels/forumgraph/pkg/graph"
)

// State maps node ids to their collapsed flag. Absent ids are expanded.
//
// Each node moves between two states, expanded (the initial state) and
// collapsed, and only through [State.Toggle] or [State.Set]. Reading a nil
// State is allowed and reports every node as expanded; mutating requires a
// State from [NewState] or [StateFromGraph].
type State map[string]bool

// NewState returns a state with the given ids collapsed.
func NewState(collapsed ...string) State {
	s := make(State, len(collapsed))
	for _, id := range collapsed {
		s[id] = true
	}
	return s
}

// StateFromGraph seeds a state from the nodes' collapsed flags.
func StateFromGraph(g graph.Graph) State {
	s := make(State)
	for _, n := range g.Nodes {
		if n.Collapsed {
			s[n.ID] = true
		}
	}
	return s
}

// Collapsed reports whether id is collapsed.
func (s State) Collapsed(id string) bool {
	return s[id]
}

// Toggle flips id's collapsed flag and returns the new value. It does not
// check that id exists in any graph; recompute the visible subgraph afterwards.
func (s State) Toggle(id string) bool {
	collapsed := !s[id]
	s.Set(id, collapsed)
	return collapsed
}

// Set collapses or expands id.
func (s State) Set(id string, collapsed bool) {
	if collapsed {
		s[id] = true
		return
	}
	delete(s, id)
}

// CollapsedIDs returns the collapsed ids in sorted order.
func (s State) CollapsedIDs() []string {
	ids := make([]string, 0, len(s))
	for id, c := range s {
		if c {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Clone returns an independent copy of s.
func (s State) Clone() State {
	if s == nil {
		return make(State)
	}
	return maps.Clone(s)
}

// ExpandAll clears every collapsed flag.
func (s State) ExpandAll() {
	clear(s)
}

// CollapseDepth collapses the nodes that sit depth links below rootID and
// have child links, so a fresh view shows the top of the hierarchy only.
// Depth is measured along child links, not from the nodes' level hints, which
// differ between data sources. An unknown root leaves s unchanged.
func (s State) CollapseDepth(ix *Indexed, rootID string, depth int) {
	root, ok := ix.byID[rootID]
	if !ok || depth < 0 {
		return
	}

	seen := make([]bool, len(ix.nodes))
	seen[root] = true
	frontier := []int{root}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []int
		for _, i := range frontier {
			for _, li := range ix.children[i] {
				if t := ix.targets[li]; !seen[t] {
					seen[t] = true
					next = append(next, t)
				}
			}
		}
		frontier = next
	}

	for _, i := range frontier {
		if len(ix.children[i]) > 0 {
			s[ix.nodes[i].ID] = true
		}
	}
}
