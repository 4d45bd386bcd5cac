// Package generate builds synthetic forum graphs for demos and tests.
//
// The shape mirrors a chat server: one server, categories under it, channels
// under each category, threads under each channel, and inside each thread a
// chain of messages each replying to the previous one.
//
//	srvr-1 -> cat-1 -> chnl-1-1 -> thd-1-1-1 -> msg-1-1-1-1 -> msg-1-1-1-2
package generate

import (
	"fmt"

	"github.com/matzehuels/forumgraph/pkg/graph"
)

// DefaultCount is used for any count left at zero.
const DefaultCount = 2

// Options sets the fan-out at each level.
type Options struct {
	Categories int // categories under the server
	Channels   int // channels per category
	Threads    int // threads per channel
	Messages   int // messages per thread
}

func (o Options) withDefaults() Options {
	for _, p := range []*int{&o.Categories, &o.Channels, &o.Threads, &o.Messages} {
		if *p <= 0 {
			*p = DefaultCount
		}
	}
	return o
}

// Size returns the node and link counts Generate will produce.
func (o Options) Size() (nodes, links int) {
	o = o.withDefaults()
	threads := o.Categories * o.Channels * o.Threads
	nodes = 1 + o.Categories + o.Categories*o.Channels + threads + threads*o.Messages
	return nodes, nodes - 1
}

// Generate builds the graph. Nodes are grouped by category so renderers can
// color whole subtrees alike.
func Generate(opts Options) graph.Graph {
	opts = opts.withDefaults()
	nodes, links := opts.Size()
	g := graph.Graph{
		Nodes: make([]graph.Node, 0, nodes),
		Links: make([]graph.Link, 0, links),
	}

	const server = "srvr-1"
	g.Nodes = append(g.Nodes, node(server, graph.TypeServer, 0, 0))

	for c := 1; c <= opts.Categories; c++ {
		cat := fmt.Sprintf("cat-%d", c)
		g.Nodes = append(g.Nodes, node(cat, graph.TypeCategory, 1, c))
		g.Links = append(g.Links, link(server, cat, graph.LinkParent, c))

		for ch := 1; ch <= opts.Channels; ch++ {
			chnl := fmt.Sprintf("chnl-%d-%d", c, ch)
			g.Nodes = append(g.Nodes, node(chnl, graph.TypeChannel, 2, c))
			g.Links = append(g.Links, link(cat, chnl, graph.LinkParent, c))

			for t := 1; t <= opts.Threads; t++ {
				thd := fmt.Sprintf("thd-%d-%d-%d", c, ch, t)
				g.Nodes = append(g.Nodes, node(thd, graph.TypeThread, 3, c))
				g.Links = append(g.Links, link(chnl, thd, graph.LinkParent, c))

				prev := thd
				for m := 1; m <= opts.Messages; m++ {
					msg := fmt.Sprintf("msg-%d-%d-%d-%d", c, ch, t, m)
					g.Nodes = append(g.Nodes, node(msg, graph.TypeMessage, 4, c))
					g.Links = append(g.Links, link(prev, msg, graph.LinkReply, c))
					prev = msg
				}
			}
		}
	}
	return g
}

func node(id string, t graph.NodeType, level, group int) graph.Node {
	v := float64(t.Value())
	return graph.Node{
		ID:           id,
		Type:         t,
		Level:        level,
		Group:        group,
		RelativeSize: v * v,
	}
}

func link(source, target string, t graph.LinkType, group int) graph.Link {
	return graph.Link{
		Source:         graph.Endpoint(source),
		Target:         graph.Endpoint(target),
		Type:           t,
		Group:          group,
		RelativeLength: 1,
		Directional:    true,
	}
}
