package visibility

import (
	"slices"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// Visible computes the subgraph reachable from rootID through expanded nodes.
//
// The walk is depth-first pre-order. Each node reached is emitted, with its
// Collapsed field set from state. A collapsed node ends its branch. Otherwise
// all of its child links are emitted, in order, and then each child link's
// target is visited. Nodes already emitted are not visited again.
//
// A nil state means every node is expanded. An unknown root yields a
// NOT_FOUND error and an empty graph.
func (ix *Indexed) Visible(rootID string, state State) (graph.Graph, error) {
	root, ok := ix.byID[rootID]
	if !ok {
		return graph.Graph{}, errors.New(errors.ErrCodeNotFound, "root node %q", rootID)
	}

	out := graph.Graph{Nodes: []graph.Node{}, Links: []graph.Link{}}
	seen := make([]bool, len(ix.nodes))
	stack := []int{root}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true

		n := ix.nodes[i]
		n.Collapsed = state.Collapsed(n.ID)
		out.Nodes = append(out.Nodes, n)
		if n.Collapsed {
			continue
		}

		kids := ix.children[i]
		for _, li := range kids {
			out.Links = append(out.Links, ix.links[li])
		}
		// Push in reverse so the first child is visited first.
		for _, li := range slices.Backward(kids) {
			if t := ix.targets[li]; !seen[t] {
				stack = append(stack, t)
			}
		}
	}

	return out, nil
}

// ComputeVisibleSubgraph indexes g and computes the subgraph visible from
// rootID in one call. Dangling links are skipped silently; use [Index] and
// [Indexed.Dangling] to inspect them.
func ComputeVisibleSubgraph(g graph.Graph, rootID string, state State) (graph.Graph, error) {
	ix, err := Index(g)
	if err != nil {
		return graph.Graph{}, err
	}
	return ix.Visible(rootID, state)
}
