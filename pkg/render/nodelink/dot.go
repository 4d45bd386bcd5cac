package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node type and level to labels.
	// When false, only the display name is shown.
	Detailed bool
}

// Engine names the Graphviz layout engine used by [RenderSVG].
type Engine string

const (
	// EngineDot ranks nodes along the configured DAG orientation.
	EngineDot Engine = "dot"
	// EngineNeato is a spring model that honors per-edge len attributes.
	EngineNeato Engine = "neato"
)

// EngineFor picks the engine matching cfg: ranked layout when a DAG
// orientation is set, a spring layout otherwise.
func EngineFor(cfg display.Config) Engine {
	if cfg.DAGOrientation == display.OrientationNone {
		return EngineNeato
	}
	return EngineDot
}

// typeColors is the auto-color-by-type palette.
var typeColors = map[graph.NodeType]string{
	graph.TypeServer:   "#e15759",
	graph.TypeCategory: "#f28e2b",
	graph.TypeChannel:  "#59a14f",
	graph.TypeThread:   "#4e79a7",
	graph.TypeMessage:  "#b07aa1",
}

// fallbackColors serve types outside the known set, picked by hash.
var fallbackColors = []string{"#76b7b2", "#edc948", "#ff9da7", "#9c755f", "#bab0ac"}

// NodeColor returns the fill color of n: its own color when set, otherwise
// a stable color for its type.
func NodeColor(n graph.Node) string {
	if n.Color != "" {
		return n.Color
	}
	if c, ok := typeColors[n.Type.Known()]; ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(n.Type))
	return fallbackColors[h.Sum32()%uint32(len(fallbackColors))]
}

// ToDOT converts a visible subgraph to Graphviz DOT.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Collapsed nodes are drawn with a doubled outline and a "+" label suffix.
// Reply links are dashed. Every edge carries a len attribute from
// [display.Config.LinkDistance]; node widths scale with
// [display.Config.NodeRelativeSize].
func ToDOT(g graph.Graph, cfg display.Config, opts Options) string {
	byID := make(map[string]*graph.Node, len(g.Nodes))
	for i := range g.Nodes {
		byID[g.Nodes[i].ID] = &g.Nodes[i]
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankDir(cfg.DAGOrientation))
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fontsize=14, fontcolor=white];\n")
	fmt.Fprintf(&buf, "  edge [arrowsize=%.2f];\n", arrowSize(cfg.ArrowLength))
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, cfg, opts), ", "))
	}

	buf.WriteString("\n")
	for _, l := range g.Links {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", l.Source.ID(), l.Target.ID(),
			strings.Join(edgeAttrs(l, byID[l.Source.ID()], cfg), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func rankDir(orientation string) string {
	switch orientation {
	case display.OrientationBottomUp:
		return "BT"
	case display.OrientationLeftRight:
		return "LR"
	case display.OrientationRightLeft:
		return "RL"
	default:
		return "TB"
	}
}

// arrowSize maps the 0-100 arrow length onto Graphviz's arrowsize scale.
func arrowSize(length float64) float64 {
	return length / 10
}

func fmtLabel(n graph.Node, detailed bool) string {
	label := n.DisplayName()
	if n.Collapsed {
		label += " +"
	}
	if !detailed {
		return label
	}
	return fmt.Sprintf("%s\ntype: %s\nlevel: %d", label, n.Type, n.Level)
}

func nodeAttrs(n graph.Node, cfg display.Config, opts Options) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
		fmt.Sprintf("fillcolor=%q", NodeColor(n)),
		"width=" + strconv.FormatFloat(nodeWidth(cfg.NodeRelativeSize(n)), 'f', 2, 64),
	}
	if n.Collapsed {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

// nodeWidth keeps huge relative sizes drawable.
func nodeWidth(rel float64) float64 {
	w := 0.5 + rel/100
	if w > 6 {
		return 6
	}
	return w
}

func edgeAttrs(l graph.Link, source *graph.Node, cfg display.Config) []string {
	attrs := []string{
		"len=" + strconv.FormatFloat(cfg.LinkDistance(l, source), 'f', 2, 64),
	}
	if l.Type.Known() == graph.LinkReply {
		attrs = append(attrs, "style=dashed")
		if !l.Directional {
			attrs = append(attrs, "arrowhead=none")
		}
	}
	return attrs
}

// =============================================================================
// SVG
// =============================================================================

// RenderSVG renders a DOT graph to SVG using Graphviz with the given engine.
func RenderSVG(ctx context.Context, dot string, engine Engine) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	if engine != "" {
		gv.SetLayout(graphviz.Layout(engine))
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
