package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/forumgraph/pkg/cache"
	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/server"
	"github.com/matzehuels/forumgraph/pkg/session"
	"github.com/matzehuels/forumgraph/pkg/store"
)

const connectTimeout = 10 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string
	config  string
	viewTTL time.Duration
	watch   bool

	dir    string // graph directory
	mongo  store.MongoConfig
	views  string // view directory, used when Redis is not configured
	redis  session.RedisConfig
	memory bool // keep views in memory only
}

// serveCommand creates the serve command for the HTTP and WebSocket service.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080", dir: "graphs", viewTTL: session.DefaultTTL}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graphs and live views over HTTP",
		Long: `Serve graphs over HTTP.

Graphs come from a directory of JSON files (--dir) or MongoDB (--mongo-uri).
Views, each a root plus a collapse state, are kept in Redis (--redis-addr),
in a directory (--views), or in memory (--memory). Clients subscribe to a
view's events over WebSocket and receive the visible subgraph after every
toggle, plus display config changes.`,
		Example: `  forumgraph serve --dir graphs --watch
  forumgraph serve --mongo-uri mongodb://localhost:27017 --redis-addr localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.config, "config", "", "display config file (TOML)")
	cmd.Flags().DurationVar(&opts.viewTTL, "view-ttl", opts.viewTTL, "idle time before a view expires")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload graphs when files in --dir change")
	cmd.Flags().StringVar(&opts.dir, "dir", opts.dir, "graph directory")
	cmd.Flags().StringVar(&opts.mongo.URI, "mongo-uri", "", "MongoDB URI (replaces --dir)")
	cmd.Flags().StringVar(&opts.mongo.Database, "mongo-db", store.DefaultDatabase, "MongoDB database")
	cmd.Flags().StringVar(&opts.views, "views", "", "view directory (default: ~/.config/forumgraph/views)")
	cmd.Flags().StringVar(&opts.redis.Addr, "redis-addr", "", "Redis address for views")
	cmd.Flags().StringVar(&opts.redis.Password, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&opts.redis.DB, "redis-db", 0, "Redis database")
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "keep views in memory only")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	cfg, _, err := loadDisplay(opts.config)
	if err != nil {
		return err
	}

	graphs, err := openGraphStore(ctx, opts)
	if err != nil {
		return err
	}
	defer graphs.Close(context.Background())

	views, err := openViewStore(ctx, opts)
	if err != nil {
		return err
	}
	defer views.Close()

	metrics := observability.NewPrometheus(nil)
	observability.Register(metrics)
	defer observability.Reset()

	if opts.watch && opts.mongo.URI != "" {
		logger.Warn("--watch only applies to --dir, ignoring")
	}

	printInfo("Listening on %s", StyleHighlight.Render(opts.addr))
	printNextStep("List graphs", "curl http://localhost"+opts.addr+"/api/graphs")

	srv := server.New(server.Config{
		Addr:     opts.addr,
		Store:    graphs,
		Sessions: views,
		Display:  display.NewLive(cfg),
		Logger:   logger,
		Metrics:  metrics,
		ViewTTL:  opts.viewTTL,
		Watch:    opts.watch,
	})
	return srv.Run(ctx)
}

// openGraphStore opens MongoDB when a URI is set and the graph directory
// otherwise.
func openGraphStore(ctx context.Context, opts serveOpts) (store.Store, error) {
	if opts.mongo.URI == "" {
		s, err := store.NewDirStore(opts.dir)
		if err != nil {
			return nil, err
		}
		printKeyValue("Graphs", s.Dir())
		return s, nil
	}

	var s *store.MongoStore
	err := connect(ctx, "Connecting to MongoDB", func(ctx context.Context) (err error) {
		s, err = store.NewMongoStore(ctx, opts.mongo)
		return err
	})
	if err != nil {
		return nil, err
	}
	printKeyValue("Graphs", "mongodb "+opts.mongo.Database)
	return s, nil
}

// openViewStore picks Redis, memory or the view directory, in that order.
func openViewStore(ctx context.Context, opts serveOpts) (session.Store, error) {
	switch {
	case opts.redis.Addr != "":
		var s *session.RedisStore
		err := connect(ctx, "Connecting to Redis", func(ctx context.Context) (err error) {
			s, err = session.NewRedisStore(ctx, opts.redis)
			return err
		})
		if err != nil {
			return nil, err
		}
		printKeyValue("Views", "redis "+opts.redis.Addr)
		return s, nil
	case opts.memory:
		printKeyValue("Views", "memory")
		return session.NewMemoryStore(), nil
	}
	s, err := session.NewFileStore(opts.views)
	if err != nil {
		return nil, err
	}
	printKeyValue("Views", s.Path())
	return s, nil
}

// connect runs fn with a spinner, retrying connection failures with backoff.
// Input errors such as a malformed URI fail at once.
func connect(ctx context.Context, msg string, fn func(context.Context) error) error {
	spinner := newSpinner(ctx, msg)
	spinner.Start()

	attempt := 0
	err := cache.RetryWithBackoff(ctx, func() error {
		if attempt++; attempt > 1 {
			spinner.SetPhase(fmt.Sprintf("%s (attempt %d)", msg, attempt))
		}
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		err := fn(attemptCtx)
		if err == nil || errors.GetCode(err) != "" {
			return err
		}
		return cache.Retryable(err)
	})
	if err != nil {
		spinner.StopWithError(msg + " failed")
		return err
	}
	spinner.Stop()
	return nil
}
