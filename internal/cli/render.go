package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/buildinfo"
	"github.com/matzehuels/forumgraph/pkg/cache"
	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/render/nodelink"
)

const (
	formatSVG = "svg"
	formatDOT = "dot"

	renderCacheTTL = 7 * 24 * time.Hour
)

// renderKeyer scopes render keys by release.
var renderKeyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Version+":")

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	view     viewFlags
	output   string // output file path (default: <graph>.<format>)
	format   string // "svg" or "dot"
	dot      bool   // shorthand for the dot format
	config   string // display config file
	detailed bool   // add type and level to node labels
	noCache  bool   // bypass the render cache
}

// renderCommand creates the render command for node-link diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: formatSVG}

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render the visible subgraph as a node-link diagram",
		Long: `Render the visible subgraph with Graphviz.

Link lengths, node sizes, arrow size and orientation come from the display
config. Graphs without an orientation use the force-directed neato engine.
Rendered SVGs are cached by content; use --no-cache to bypass the cache.`,
		Example: `  forumgraph render forum.json
  forumgraph render forum.json --depth 3 --dot -o forum.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dot {
				opts.format = formatDOT
			}
			opts.format = strings.ToLower(opts.format)
			if opts.format != formatSVG && opts.format != formatDOT {
				return fmt.Errorf("unknown format %q (want svg or dot)", opts.format)
			}
			return runRender(cmd.Context(), args[0], opts)
		},
	}

	opts.view.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <graph>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg or dot")
	cmd.Flags().BoolVar(&opts.dot, "dot", false, "write Graphviz DOT instead of SVG")
	cmd.Flags().StringVar(&opts.config, "config", "", "display config file (TOML)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node type and level in labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// runRender loads, filters and renders a graph, consulting the cache first.
func runRender(ctx context.Context, path string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	cfg, cfgPath, err := loadDisplay(opts.config)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.Debug("display config", "path", cfgPath)
	}

	l, err := loadGraph(ctx, path, opts.view)
	if err != nil {
		return err
	}
	g, err := l.visible(ctx)
	if err != nil {
		return err
	}

	c, err := newCache(opts.noCache)
	if err != nil {
		return err
	}
	defer c.Close()

	prog := newProgress(logger)
	data, cached, err := renderCached(ctx, c, g, cfg, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d nodes", g.NodeCount()))

	out := opts.output
	if out == "" {
		out = l.name + "." + opts.format
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Rendered %s", l.name)
	printStats(g.NodeCount(), g.LinkCount(), l.ix.Len()-g.NodeCount(), cached)
	printFile(out)
	return nil
}

// renderCached returns the rendered bytes for g, from the cache when possible.
// Cache failures are logged and never fail the render.
func renderCached(ctx context.Context, c cache.Cache, g graph.Graph, cfg display.Config, opts renderOpts) ([]byte, bool, error) {
	logger := loggerFromContext(ctx)
	hooks := observability.Cache()
	key := renderKeyer.RenderKey(g, cfg, cache.RenderKeyOpts{Format: opts.format, Detailed: opts.detailed})

	data, err := c.Get(ctx, key)
	switch {
	case err == nil:
		hooks.OnCacheHit(ctx, cache.KindRender)
		return data, true, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		logger.Warn("cache read failed", "err", err)
	}
	hooks.OnCacheMiss(ctx, cache.KindRender)

	dot := nodelink.ToDOT(g, cfg, nodelink.Options{Detailed: opts.detailed})
	data = []byte(dot)
	if opts.format == formatSVG {
		engine := nodelink.EngineFor(cfg)
		spinner := newSpinner(ctx, fmt.Sprintf("Laying out %d nodes with %s", g.NodeCount(), engine))
		spinner.Start()
		svg, err := nodelink.RenderSVG(ctx, dot, engine)
		elapsed := spinner.Stop()
		if err != nil {
			return nil, false, fmt.Errorf("render svg: %w", err)
		}
		logger.Debug("Layout finished", "engine", engine, "elapsed", elapsed.Round(time.Millisecond))
		data = svg
	}

	if err := c.Set(ctx, key, data, renderCacheTTL); err != nil {
		logger.Warn("cache write failed", "err", err)
	} else {
		hooks.OnCacheSet(ctx, cache.KindRender, len(data))
	}
	return data, false, nil
}
