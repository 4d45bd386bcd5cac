package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/visibility"
)

// browseCommand creates the browse command, an interactive tree of the
// visible subgraph.
func (c *CLI) browseCommand() *cobra.Command {
	var (
		flags viewFlags
		save  bool
	)

	cmd := &cobra.Command{
		Use:   "browse [graph.json]",
		Short: "Collapse and expand nodes interactively",
		Long: `Browse a graph as a collapsible tree in the terminal.

With --save, the final collapse state is written back to the graph file as
the nodes' "collapsed" flags, so later views start from it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if save && args[0] == "-" {
				return fmt.Errorf("--save needs a graph file, not stdin")
			}
			l, err := loadGraph(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}

			final, err := tea.NewProgram(NewTreeModel(l.name, l.ix, l.root, l.state), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
			if err != nil {
				return fmt.Errorf("browse: %w", err)
			}
			m := final.(TreeModel)

			printInfo("%d of %d nodes visible", len(m.VisibleIDs()), l.ix.Len())
			if !save {
				return nil
			}
			if err := graph.WriteGraphFile(withCollapsed(l.g, m.State), args[0]); err != nil {
				return err
			}
			printSuccess("Saved collapse state")
			printFile(args[0])
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "write the collapse state back to the graph file")

	return cmd
}

// withCollapsed returns a copy of g whose nodes' collapsed flags match state.
func withCollapsed(g graph.Graph, state visibility.State) graph.Graph {
	nodes := make([]graph.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Collapsed = state.Collapsed(n.ID)
		nodes[i] = n
	}
	g.Nodes = nodes
	return g
}
