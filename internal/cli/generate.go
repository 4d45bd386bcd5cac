package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/generate"
	"github.com/matzehuels/forumgraph/pkg/graph"
)

// generateCommand creates the generate command for synthetic forum graphs.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		opts   generate.Options
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic forum graph",
		Long: `Generate a forum graph: one server, its categories, channels and threads,
and a reply chain of messages in every thread. Counts default to 2.`,
		Example: `  forumgraph generate -o forum.json
  forumgraph generate --categories 5 --messages 20 | forumgraph visible - --depth 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := generate.Generate(opts)
			loggerFromContext(cmd.Context()).Debug("generated graph", "nodes", g.NodeCount(), "links", g.LinkCount())

			if output == "" {
				return graph.WriteGraph(g, cmd.OutOrStdout())
			}
			if err := graph.WriteGraphFile(g, output); err != nil {
				return err
			}
			printSuccess("Generated forum graph")
			printStats(g.NodeCount(), g.LinkCount(), 0, false)
			printFile(output)
			printNextStep("Browse it", "forumgraph browse "+output)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Categories, "categories", generate.DefaultCount, "categories under the server")
	cmd.Flags().IntVar(&opts.Channels, "channels", generate.DefaultCount, "channels per category")
	cmd.Flags().IntVar(&opts.Threads, "threads", generate.DefaultCount, "threads per channel")
	cmd.Flags().IntVar(&opts.Messages, "messages", generate.DefaultCount, "messages per thread")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}
