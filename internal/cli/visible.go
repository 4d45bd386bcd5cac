package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/graph"
)

// visibleCommand creates the visible command for printing the subgraph a
// collapse state leaves on screen.
func (c *CLI) visibleCommand() *cobra.Command {
	var (
		flags  viewFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "visible [graph.json]",
		Short: "Print the subgraph visible under a collapse state",
		Long: `Print the subgraph visible from a root node.

The walk starts at the root and stops at collapsed nodes; their descendants
are hidden. The collapse state comes from the graph file's "collapsed" flags,
--depth, and any --collapse ids. Pass "-" to read the graph from stdin.`,
		Example: `  # Everything below the server
  forumgraph visible forum.json

  # Only categories and channels
  forumgraph visible forum.json --depth 2 -o top.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := loadGraph(ctx, args[0], flags)
			if err != nil {
				return err
			}
			g, err := l.visible(ctx)
			if err != nil {
				return err
			}

			if output == "" {
				return graph.WriteGraph(g, cmd.OutOrStdout())
			}
			if err := graph.WriteGraphFile(g, output); err != nil {
				return err
			}
			printSuccess("Visible subgraph of %s", l.name)
			printStats(g.NodeCount(), g.LinkCount(), l.ix.Len()-g.NodeCount(), false)
			printFile(output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
