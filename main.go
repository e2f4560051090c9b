package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mpilhlt/dhamps-blog/internal/auth"
	"github.com/mpilhlt/dhamps-blog/internal/database"
	"github.com/mpilhlt/dhamps-blog/internal/handlers"
	"github.com/mpilhlt/dhamps-blog/internal/hits"
	"github.com/mpilhlt/dhamps-blog/internal/logging"
	"github.com/mpilhlt/dhamps-blog/internal/models"
	"github.com/mpilhlt/dhamps-blog/internal/ratelimit"
	"github.com/mpilhlt/dhamps-blog/internal/render"

	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	huma "github.com/danielgtaylor/huma/v2"
)

const (
	apiTitle   = "Blog API"
	apiVersion = "0.1.0"
)

// newAPI creates the router and API with all middleware and routes.
// limiter may be nil, which disables rate limiting.
func newAPI(options *models.Options, pool *pgxpool.Pool, services handlers.Services, limiter *ratelimit.Store, logger *zap.Logger) (*http.ServeMux, huma.API, error) {
	config := huma.DefaultConfig(apiTitle, apiVersion)
	config.Components.SecuritySchemes = auth.Config
	router := http.NewServeMux()
	api := humago.New(router, config)
	api.UseMiddleware(logging.Middleware(logger))
	api.UseMiddleware(ratelimit.Middleware(api, ratelimit.Options{Store: limiter, TrustXForwardedFor: options.TrustForwardedFor}))
	api.UseMiddleware(auth.AdminAuth(api, options))
	api.UseMiddleware(auth.AuthTermination(api))

	if err := handlers.AddRoutes(pool, services, api); err != nil {
		return nil, nil, fmt.Errorf("unable to add routes: %w", err)
	}
	return router, api, nil
}

// newCounter picks the redis view counter if an address is configured.
func newCounter(ctx context.Context, options *models.Options) (hits.Counter, func(), error) {
	if options.RedisAddr == "" {
		return hits.NewMemoryCounter(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: options.RedisAddr})
	counter := hits.NewRedisCounter(rdb)
	if err := counter.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("unable to reach redis at %s: %w", options.RedisAddr, err)
	}
	return counter, func() { _ = rdb.Close() }, nil
}

// serverState holds what OnStart builds and OnStop tears down. The hooks
// run on different goroutines, and a signal may arrive before startup is done.
type serverState struct {
	mu      sync.Mutex
	stopped bool
	server  *http.Server
	pool    *pgxpool.Pool
	closers []func()
}

// set publishes the started resources. It returns false if stop already
// ran, in which case the resources are released right away and the caller
// must not serve.
func (s *serverState) set(server *http.Server, pool *pgxpool.Pool, closers ...func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		for _, c := range closers {
			c()
		}
		if pool != nil {
			pool.Close()
		}
		return false
	}
	s.server, s.pool, s.closers = server, pool, closers
	return true
}

// stop shuts the server down and releases everything set before. Later
// calls to set are refused.
func (s *serverState) stop(ctx context.Context, logger *zap.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
	if s.pool != nil {
		logger.Info("closing database pool", zap.Int32("active_connections", s.pool.Stat().TotalConns()))
		s.pool.Close()
		s.pool = nil
	}
}

func fatal(logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	_ = logger.Sync()
	os.Exit(1)
}

func main() {
	// A local .env file may provide SERVICE_* variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Unable to load .env file: %v\n", err)
	}

	// Create a CLI app
	cli := humacli.New(func(hooks humacli.Hooks, options *models.Options) {
		logger, err := logging.New(options.Debug)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		zap.ReplaceGlobals(logger)

		state := &serverState{}

		// Start server
		hooks.OnStart(func() {
			logger.Info("starting blog",
				zap.Bool("debug", options.Debug),
				zap.String("host", options.Host),
				zap.Int("port", options.Port),
				zap.String("db_host", options.DBHost),
				zap.String("db_name", options.DBName))
			if options.AdminKey == "" {
				logger.Warn("no admin key set, write operations are disabled")
			}

			ctx := context.Background()
			pool, err := database.InitDB(ctx, options)
			if err != nil {
				fatal(logger, "unable to connect to database", err)
			}

			counter, closeRedis, err := newCounter(ctx, options)
			if err != nil {
				fatal(logger, "unable to set up view counter", err)
			}

			renderer, err := render.New()
			if err != nil {
				fatal(logger, "unable to load templates", err)
			}

			var limiter *ratelimit.Store
			janitorCtx, stopJanitor := context.WithCancel(ctx)
			if options.RateLimit > 0 {
				if options.RateBurst < 1 {
					logger.Warn("rate burst below 1, using 1", zap.Int("rate_burst", options.RateBurst))
				}
				limiter = ratelimit.NewStore(float64(options.RateLimit), options.RateBurst)
				limiter.StartJanitor(janitorCtx)
			}

			router, _, err := newAPI(options, pool, handlers.Services{Renderer: renderer, Counter: counter}, limiter, logger)
			if err != nil {
				fatal(logger, "unable to set up API", err)
			}

			server := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", options.Host, options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}
			if !state.set(server, pool, stopJanitor, closeRedis) {
				logger.Info("stopped during startup, not serving")
				return
			}

			logger.Info("API server listening", zap.String("addr", server.Addr))
			err = server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("listen error", zap.Error(err))
			} else {
				logger.Info("API server stopped", zap.Int("port", options.Port))
			}
		})

		// Gracefully shutdown server
		hooks.OnStop(func() {
			logger.Info("shutting down API server", zap.Int("port", options.Port))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			state.stop(ctx, logger)
			logger.Info("blog stopped")
			_ = logger.Sync()
		})
	})

	cli.Root().Use = "dhamps-blog"
	cli.Root().AddCommand(openAPICommand(), migrateCommand(), seedCommand())

	// Run the CLI. When passed no commands, it starts the server.
	cli.Run()
}

func openAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI spec as YAML",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *models.Options) {
			renderer, err := render.New()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			// Routes are only described, never served, so no pool is needed.
			_, api, err := newAPI(options, nil, handlers.Services{Renderer: renderer, Counter: hits.NewMemoryCounter()}, nil, zap.NewNop())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			b, err := api.OpenAPI().YAML()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(b))
		}),
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [version]",
		Short: "Show the schema version, or migrate to the given version (0 undoes all migrations)",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *models.Options) {
			ctx := context.Background()
			conn, err := pgx.Connect(ctx, options.DatabaseURL())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
				os.Exit(1)
			}
			defer conn.Close(ctx)

			m, err := database.NewMigrator(ctx, conn)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unable to load migrations: %v\n", err)
				os.Exit(1)
			}

			if len(args) == 1 {
				version, err := strconv.ParseInt(args[0], 10, 32)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Invalid version %q: %v\n", args[0], err)
					os.Exit(1)
				}
				if err := m.MigrateTo(ctx, int32(version)); err != nil {
					fmt.Fprintf(os.Stderr, "Unable to migrate: %v\n", err)
					os.Exit(1)
				}
			}

			version, last, info, err := m.Info(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unable to read migration info: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d of %d\n%s", version, last, info)
		}),
	}
}

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Insert the posts listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *models.Options) {
			f, err := os.Open(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unable to open seed file: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()

			posts, err := database.LoadSeed(f)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			ctx := context.Background()
			pool, err := database.InitDB(ctx, options)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
				os.Exit(1)
			}
			defer pool.Close()

			created, err := database.Seed(ctx, pool, posts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Unable to seed posts: %v\n", err)
				os.Exit(1)
			}
			for _, p := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d %s\n", p.PostID, p.Title)
			}
		}),
	}
}
