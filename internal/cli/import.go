package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/generate"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/store"
	"github.com/matzehuels/forumgraph/pkg/visibility"
)

// importCommand creates the import command, which saves a graph file into a
// graph store.
func (c *CLI) importCommand() *cobra.Command {
	var (
		name       string
		dir        string
		mongo      store.MongoConfig
		fromServer bool
		server     generate.ServerOptions
	)

	cmd := &cobra.Command{
		Use:   "import [graph.json]",
		Short: "Save a graph into a graph store",
		Long: `Save a graph into the directory served by "forumgraph serve --dir", or into
MongoDB with --mongo-uri. The name defaults to the file name.

With --from-server the file is a chat server dump instead of a graph. It is
converted to a forum graph with one node per distinct tag and per human
author, tag links from users, categories, channels and threads, and the
--skip-channel channels left out.`,
		Example: `  forumgraph import forum.json --dir graphs
  forumgraph import forum.json --name demo --mongo-uri mongodb://localhost:27017
  forumgraph import server_data.json --from-server --name course`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			g, err := readImportArg(args[0], fromServer, server)
			if err != nil {
				return err
			}
			if name == "" {
				name = graphName(args[0])
			}
			if err := errors.ValidateGraphName(name); err != nil {
				return err
			}

			ix, err := visibility.Index(g, visibility.WithLogger(logger))
			if err != nil {
				return err
			}
			if n := len(ix.Dangling()); n > 0 {
				printWarning("%d dangling links will be skipped when viewing", n)
			}

			s, where, err := openImportStore(ctx, dir, mongo)
			if err != nil {
				return err
			}
			defer s.Close(context.Background())

			if err := s.Save(ctx, name, g); err != nil {
				return fmt.Errorf("save %s: %w", name, err)
			}
			printSuccess("Imported %s into %s", StyleHighlight.Render(name), where)
			printStats(g.NodeCount(), g.LinkCount(), 0, false)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "graph name (default: file name)")
	cmd.Flags().StringVar(&dir, "dir", "graphs", "graph directory")
	cmd.Flags().StringVar(&mongo.URI, "mongo-uri", "", "MongoDB URI (replaces --dir)")
	cmd.Flags().StringVar(&mongo.Database, "mongo-db", store.DefaultDatabase, "MongoDB database")
	cmd.Flags().BoolVar(&fromServer, "from-server", false, "read a chat server dump instead of a graph")
	cmd.Flags().StringSliceVar(&server.SkipChannels, "skip-channel", generate.DefaultSkipChannels, "channel names to leave out with --from-server")
	cmd.Flags().StringSliceVar(&server.ExcludeUsers, "exclude-user", nil, "author ids to leave out with --from-server")

	return cmd
}

// readImportArg reads path as a graph, or as a server dump converted to a
// graph when fromServer is set.
func readImportArg(path string, fromServer bool, opts generate.ServerOptions) (graph.Graph, error) {
	if !fromServer {
		return readGraphArg(path)
	}
	var (
		sd  generate.ServerData
		err error
	)
	if path == "-" {
		sd, err = generate.ReadServerData(os.Stdin)
	} else {
		sd, err = generate.ReadServerDataFile(path)
	}
	if err != nil {
		return graph.Graph{}, err
	}
	if opts.SkipChannels == nil {
		opts.SkipChannels = []string{}
	}
	return generate.FromServer(sd, opts), nil
}

func openImportStore(ctx context.Context, dir string, mongo store.MongoConfig) (store.Store, string, error) {
	if mongo.URI == "" {
		s, err := store.NewDirStore(dir)
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	}
	var s *store.MongoStore
	err := connect(ctx, "Connecting to MongoDB", func(ctx context.Context) (err error) {
		s, err = store.NewMongoStore(ctx, mongo)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return s, "mongodb " + mongo.Database, nil
}
