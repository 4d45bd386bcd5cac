package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/visibility"
)

// =============================================================================
// View Flags
// =============================================================================

// viewFlags selects the part of a graph a command works on.
type viewFlags struct {
	root     string
	collapse []string
	depth    int
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", "", "root node id (default: the graph's first root)")
	cmd.Flags().StringSliceVar(&f.collapse, "collapse", nil, "node ids to collapse (repeatable)")
	cmd.Flags().IntVar(&f.depth, "depth", -1, "collapse nodes this many links below the root (-1 keeps the file's state)")
	cmd.RegisterFlagCompletionFunc("root", completeNodeIDs)
	cmd.RegisterFlagCompletionFunc("collapse", completeNodeIDs)
}

// =============================================================================
// Loaded Graph
// =============================================================================

// loaded is an indexed graph with the root and collapse state chosen by flags.
type loaded struct {
	name  string
	g     graph.Graph
	ix    *visibility.Indexed
	root  string
	state visibility.State
}

// loadGraph reads the graph at path ("-" for stdin), indexes it and applies
// the view flags. Dangling links are logged, not fatal.
func loadGraph(ctx context.Context, path string, f viewFlags) (*loaded, error) {
	logger := loggerFromContext(ctx)

	g, err := readGraphArg(path)
	if err != nil {
		return nil, err
	}
	name := graphName(path)

	start := time.Now()
	ix, err := visibility.Index(g, visibility.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	observability.Visibility().OnIndex(ctx, name, ix.Len(), ix.LinkCount(), len(ix.Dangling()), time.Since(start))
	logger.Debug("indexed graph", "graph", name, "nodes", ix.Len(), "links", ix.LinkCount())

	root := f.root
	if root == "" {
		var ok bool
		if root, ok = ix.DefaultRoot(); !ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "graph %q has no nodes", name)
		}
	} else if !ix.Has(root) {
		return nil, errors.New(errors.ErrCodeNotFound, "root node %q", root)
	}

	state := visibility.StateFromGraph(g)
	if f.depth >= 0 {
		state = visibility.NewState()
		state.CollapseDepth(ix, root, f.depth)
	}
	for _, id := range f.collapse {
		if !ix.Has(id) {
			logger.Warn("ignoring unknown node", "node", id)
			continue
		}
		state.Set(id, true)
	}

	return &loaded{name: name, g: g, ix: ix, root: root, state: state}, nil
}

// visible computes the visible subgraph and reports it to the hooks.
func (l *loaded) visible(ctx context.Context) (graph.Graph, error) {
	start := time.Now()
	g, err := l.ix.Visible(l.root, l.state)
	observability.Visibility().OnVisible(ctx, l.name, g.NodeCount(), time.Since(start), err)
	return g, err
}

// readGraphArg reads a graph file, or stdin when path is "-".
func readGraphArg(path string) (graph.Graph, error) {
	if path == "-" {
		return graph.ReadGraph(os.Stdin)
	}
	return graph.ReadGraphFile(path)
}

// graphName derives a graph name from its file name.
func graphName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// =============================================================================
// Display Config
// =============================================================================

// loadDisplay reads the display config at path. With no path it falls back to
// display.toml in the config directory and then to the defaults.
func loadDisplay(path string) (display.Config, string, error) {
	if path != "" {
		cfg, err := display.Load(path)
		return cfg, path, err
	}
	dir, err := configDir()
	if err != nil {
		return display.Default(), "", nil
	}
	path = filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); err != nil {
		return display.Default(), "", nil
	}
	cfg, err := display.Load(path)
	if err != nil {
		return display.Config{}, path, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, path, nil
}
