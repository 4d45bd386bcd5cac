package visibility

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// build returns a graph with the given node ids and "src>dst" parent links.
func build(ids string, links ...string) graph.Graph {
	g := graph.Graph{}
	for _, id := range strings.Fields(ids) {
		g.Nodes = append(g.Nodes, graph.Node{ID: id})
	}
	for _, l := range links {
		src, dst, _ := strings.Cut(l, ">")
		g.Links = append(g.Links, graph.Link{
			Source: graph.Endpoint(src),
			Target: graph.Endpoint(dst),
			Type:   graph.LinkParent,
		})
	}
	return g
}

func nodeIDs(g graph.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func linkStrings(g graph.Graph) []string {
	out := make([]string, len(g.Links))
	for i, l := range g.Links {
		out[i] = string(l.Source) + ">" + string(l.Target)
	}
	return out
}

// forum is a small server/category/channel/thread tree with a reply chain.
func forum() graph.Graph {
	return build("srv cat1 cat2 ch1 ch2 ch3 thd1 msg1 msg2",
		"srv>cat1", "srv>cat2",
		"cat1>ch1", "cat1>ch2", "cat2>ch3",
		"ch1>thd1", "thd1>msg1", "msg1>msg2",
	)
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name      string
		g         graph.Graph
		root      string
		collapsed []string
		wantNodes []string
		wantLinks []string
	}{
		{
			name:      "ChainExpanded",
			g:         build("A B C", "A>B", "B>C"),
			root:      "A",
			wantNodes: []string{"A", "B", "C"},
			wantLinks: []string{"A>B", "B>C"},
		},
		{
			name:      "ChainMiddleCollapsed",
			g:         build("A B C", "A>B", "B>C"),
			root:      "A",
			collapsed: []string{"B"},
			wantNodes: []string{"A", "B"},
			wantLinks: []string{"A>B"},
		},
		{
			name:      "RootCollapsed",
			g:         forum(),
			root:      "srv",
			collapsed: []string{"srv"},
			wantNodes: []string{"srv"},
			wantLinks: []string{},
		},
		{
			name:      "PreOrderLinksBeforeDescent",
			g:         forum(),
			root:      "srv",
			wantNodes: []string{"srv", "cat1", "ch1", "thd1", "msg1", "msg2", "ch2", "cat2", "ch3"},
			wantLinks: []string{
				"srv>cat1", "srv>cat2",
				"cat1>ch1", "cat1>ch2",
				"ch1>thd1", "thd1>msg1", "msg1>msg2",
				"cat2>ch3",
			},
		},
		{
			name:      "CollapsedBranch",
			g:         forum(),
			root:      "srv",
			collapsed: []string{"cat1"},
			wantNodes: []string{"srv", "cat1", "cat2", "ch3"},
			wantLinks: []string{"srv>cat1", "srv>cat2", "cat2>ch3"},
		},
		{
			name:      "CollapsedBelowCollapsedIsHidden",
			g:         forum(),
			root:      "srv",
			collapsed: []string{"cat1", "thd1"},
			wantNodes: []string{"srv", "cat1", "cat2", "ch3"},
			wantLinks: []string{"srv>cat1", "srv>cat2", "cat2>ch3"},
		},
		{
			name:      "SubtreeRoot",
			g:         forum(),
			root:      "ch1",
			wantNodes: []string{"ch1", "thd1", "msg1", "msg2"},
			wantLinks: []string{"ch1>thd1", "thd1>msg1", "msg1>msg2"},
		},
		{
			name:      "LeafRoot",
			g:         forum(),
			root:      "msg2",
			wantNodes: []string{"msg2"},
			wantLinks: []string{},
		},
		{
			name:      "SharedChildEmittedOnce",
			g:         build("A B C D", "A>B", "A>C", "B>D", "C>D"),
			root:      "A",
			wantNodes: []string{"A", "B", "D", "C"},
			wantLinks: []string{"A>B", "A>C", "B>D", "C>D"},
		},
		{
			name:      "SharedChildViaCollapsedParent",
			g:         build("A B C D", "A>B", "A>C", "B>D", "C>D"),
			root:      "A",
			collapsed: []string{"B"},
			wantNodes: []string{"A", "B", "C", "D"},
			wantLinks: []string{"A>B", "A>C", "C>D"},
		},
		{
			name:      "CycleTerminates",
			g:         build("A B C", "A>B", "B>C", "C>A"),
			root:      "A",
			wantNodes: []string{"A", "B", "C"},
			wantLinks: []string{"A>B", "B>C", "C>A"},
		},
		{
			name:      "UnreachableNodesExcluded",
			g:         build("A B X Y", "A>B", "X>Y"),
			root:      "A",
			wantNodes: []string{"A", "B"},
			wantLinks: []string{"A>B"},
		},
		{
			name:      "CollapsedUnknownIDIgnored",
			g:         build("A B", "A>B"),
			root:      "A",
			collapsed: []string{"nope"},
			wantNodes: []string{"A", "B"},
			wantLinks: []string{"A>B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := Index(tt.g)
			if err != nil {
				t.Fatalf("Index: %v", err)
			}

			got, err := ix.Visible(tt.root, NewState(tt.collapsed...))
			if err != nil {
				t.Fatalf("Visible: %v", err)
			}

			if ids := nodeIDs(got); !slices.Equal(ids, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", ids, tt.wantNodes)
			}
			if links := linkStrings(got); !slices.Equal(links, tt.wantLinks) {
				t.Errorf("links = %v, want %v", links, tt.wantLinks)
			}
		})
	}
}

func TestVisibleMarksCollapsed(t *testing.T) {
	ix, err := Index(build("A B C", "A>B", "B>C"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := ix.Visible("A", NewState("B"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Nodes[0].Collapsed {
		t.Error("A should be expanded")
	}
	if !got.Nodes[1].Collapsed {
		t.Error("B should be marked collapsed")
	}
}

func TestVisibleNilState(t *testing.T) {
	ix, err := Index(build("A B", "A>B"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ix.Visible("A", nil)
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if got.NodeCount() != 2 || got.LinkCount() != 1 {
		t.Errorf("got %d nodes, %d links; want 2, 1", got.NodeCount(), got.LinkCount())
	}
}

func TestVisibleUnknownRoot(t *testing.T) {
	ix, err := Index(build("A B", "A>B"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := ix.Visible("missing", nil)
	if err == nil {
		t.Fatal("expected error for unknown root")
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeNotFound)
	}
	if got.Nodes != nil || got.Links != nil {
		t.Errorf("expected no output, got %+v", got)
	}
}

func TestToggleRestoresDescendants(t *testing.T) {
	ix, err := Index(forum())
	if err != nil {
		t.Fatal(err)
	}
	state := NewState()

	before, _ := ix.Visible("srv", state)

	if !state.Toggle("cat1") {
		t.Fatal("Toggle should report collapsed")
	}
	collapsed, _ := ix.Visible("srv", state)
	if collapsed.NodeCount() >= before.NodeCount() {
		t.Fatalf("collapse did not hide anything: %d >= %d", collapsed.NodeCount(), before.NodeCount())
	}

	if state.Toggle("cat1") {
		t.Fatal("second Toggle should report expanded")
	}
	after, _ := ix.Visible("srv", state)

	if !slices.Equal(nodeIDs(after), nodeIDs(before)) {
		t.Errorf("nodes after re-expand = %v, want %v", nodeIDs(after), nodeIDs(before))
	}
	if !slices.Equal(linkStrings(after), linkStrings(before)) {
		t.Errorf("links after re-expand = %v, want %v", linkStrings(after), linkStrings(before))
	}
}

func TestTreeNodesAppearOnce(t *testing.T) {
	// A wide, deep tree: every node has exactly one parent.
	g := graph.Graph{Nodes: []graph.Node{{ID: "root"}}}
	parents := []string{"root"}
	for depth := 0; depth < 4; depth++ {
		var next []string
		for _, p := range parents {
			for k := 0; k < 3; k++ {
				id := fmt.Sprintf("%s.%d", p, k)
				g.Nodes = append(g.Nodes, graph.Node{ID: id})
				g.Links = append(g.Links, graph.Link{Source: graph.Endpoint(p), Target: graph.Endpoint(id)})
				next = append(next, id)
			}
		}
		parents = next
	}

	ix, err := Index(g)
	if err != nil {
		t.Fatal(err)
	}

	for _, collapsed := range [][]string{nil, {"root.1"}, {"root.0.0", "root.2"}} {
		got, err := ix.Visible("root", NewState(collapsed...))
		if err != nil {
			t.Fatal(err)
		}
		seen := make(map[string]bool)
		for _, n := range got.Nodes {
			if seen[n.ID] {
				t.Errorf("collapsed=%v: node %s emitted twice", collapsed, n.ID)
			}
			seen[n.ID] = true
		}
		// Each visible non-root node is reached by exactly one visible link.
		if got.LinkCount() != got.NodeCount()-1 {
			t.Errorf("collapsed=%v: %d links for %d nodes", collapsed, got.LinkCount(), got.NodeCount())
		}
		for _, l := range got.Links {
			if !seen[l.Source.ID()] || !seen[l.Target.ID()] {
				t.Errorf("collapsed=%v: link %s has an invisible endpoint", collapsed, l)
			}
		}
	}

	full, _ := ix.Visible("root", nil)
	if full.NodeCount() != len(g.Nodes) {
		t.Errorf("expanded tree shows %d nodes, want %d", full.NodeCount(), len(g.Nodes))
	}
}

func TestIndexDanglingLinks(t *testing.T) {
	g := build("A B", "A>B", "A>ghost", "phantom>B")

	var buf bytes.Buffer
	logger := log.New(&buf)

	ix, err := Index(g, WithLogger(logger))
	if err != nil {
		t.Fatalf("Index should not fail on dangling links: %v", err)
	}

	if got := ix.LinkCount(); got != 1 {
		t.Errorf("indexed links = %d, want 1", got)
	}
	if kids := ix.Children("A"); !slices.Equal(kids, []string{"B"}) {
		t.Errorf("children(A) = %v, want [B]", kids)
	}

	dangling := ix.Dangling()
	if len(dangling) != 2 {
		t.Fatalf("dangling = %d, want 2", len(dangling))
	}
	if dangling[0].Index != 1 || dangling[0].Field != "target" || dangling[0].Target != "ghost" {
		t.Errorf("dangling[0] = %+v, want link 1 missing target ghost", dangling[0])
	}
	if dangling[1].Index != 2 || dangling[1].Field != "source" {
		t.Errorf("dangling[1] = %+v, want link 2 missing source", dangling[1])
	}

	if !strings.Contains(buf.String(), "ghost") {
		t.Errorf("expected dangling link to be logged, got %q", buf.String())
	}

	got, err := ix.Visible("A", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(linkStrings(got), []string{"A>B"}) {
		t.Errorf("visible links = %v, want [A>B]", linkStrings(got))
	}
}

func TestIndexIdempotent(t *testing.T) {
	g := forum()

	first, err := Index(g)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Index(g)
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range g.Nodes {
		a, b := first.ChildLinks(n.ID), second.ChildLinks(n.ID)
		if len(a) != len(b) {
			t.Errorf("%s: child links %d vs %d after re-indexing", n.ID, len(a), len(b))
		}
	}
	if got := second.ChildLinks("srv"); len(got) != 2 {
		t.Errorf("srv child links = %d, want 2", len(got))
	}
}

func TestIndexChildLinkOrder(t *testing.T) {
	// Links for one source interleaved with others keep their relative order.
	g := build("A B C D", "A>C", "B>D", "A>B", "A>D")
	ix, err := Index(g)
	if err != nil {
		t.Fatal(err)
	}
	if got := ix.Children("A"); !slices.Equal(got, []string{"C", "B", "D"}) {
		t.Errorf("children(A) = %v, want [C B D]", got)
	}
	if got := ix.ChildLinks("C"); got != nil {
		t.Errorf("leaf child links = %v, want nil", got)
	}
	if got := ix.ChildLinks("unknown"); got != nil {
		t.Errorf("unknown child links = %v, want nil", got)
	}
}

func TestIndexDoesNotAliasInput(t *testing.T) {
	g := build("A B", "A>B")
	g.Nodes[1].Collapsed = true

	ix, err := Index(g)
	if err != nil {
		t.Fatal(err)
	}
	g.Nodes[0].Name = "changed"

	n, _ := ix.Node("A")
	if n.Name == "changed" {
		t.Error("index shares node storage with the input graph")
	}

	// Collapse state comes from State only, never from the indexed nodes.
	got, _ := ix.Visible("A", nil)
	if got.NodeCount() != 2 {
		t.Errorf("nodes = %d, want 2", got.NodeCount())
	}
}

func TestIndexDuplicateIDs(t *testing.T) {
	_, err := Index(build("A A"))
	if !errors.Is(err, errors.ErrCodeInvalidGraph) {
		t.Errorf("err = %v, want INVALID_GRAPH", err)
	}
}

func TestRoots(t *testing.T) {
	tests := []struct {
		name     string
		g        graph.Graph
		want     []string
		wantRoot string
		wantOK   bool
	}{
		{"Forum", forum(), []string{"srv"}, "srv", true},
		{"Forest", build("A B X Y", "A>B", "X>Y"), []string{"A", "X"}, "A", true},
		{"Cycle", build("A B", "A>B", "B>A"), nil, "A", true},
		{"Empty", graph.Graph{}, nil, "", false},
		{"DanglingDoesNotCount", build("A B", "ghost>B"), []string{"A", "B"}, "A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := Index(tt.g)
			if err != nil {
				t.Fatal(err)
			}
			if got := ix.Roots(); !slices.Equal(got, tt.want) {
				t.Errorf("Roots() = %v, want %v", got, tt.want)
			}
			root, ok := ix.DefaultRoot()
			if root != tt.wantRoot || ok != tt.wantOK {
				t.Errorf("DefaultRoot() = %q, %v; want %q, %v", root, ok, tt.wantRoot, tt.wantOK)
			}
		})
	}
}

func TestComputeVisibleSubgraph(t *testing.T) {
	got, err := ComputeVisibleSubgraph(build("A B C", "A>B", "B>C"), "A", NewState("B"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(nodeIDs(got), []string{"A", "B"}) {
		t.Errorf("nodes = %v, want [A B]", nodeIDs(got))
	}

	if _, err := ComputeVisibleSubgraph(build("A"), "Z", nil); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}
