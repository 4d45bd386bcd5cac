// Package nodelink renders forum graphs as node-link diagrams.
//
// # Overview
//
// This package produces Graphviz drawings of a visible subgraph, the static
// counterpart of the interactive force-directed view. Display parameters
// from [display.Config] drive orientation, edge lengths and node widths.
//
// # Usage
//
// Convert a visible subgraph to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(visible, cfg, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot, nodelink.EngineFor(cfg))
//
// # Styling
//
//   - Fill color comes from the node's own color, else a palette keyed by type
//   - Collapsed nodes get a doubled outline and a "+" suffix
//   - Reply links are dashed; parent links are solid
//   - Edge len is [display.Config.LinkDistance], honored by the neato engine
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
