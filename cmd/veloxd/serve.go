package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wyrexdev/velox/internal/admin"
	"github.com/wyrexdev/velox/internal/cache"
	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/health"
	"github.com/wyrexdev/velox/internal/listener"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/policy"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/router"
	"github.com/wyrexdev/velox/internal/task"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatcher",
	Long:  `Load the configuration, build the dispatcher, and serve until SIGINT or SIGTERM.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// application holds all daemon components.
type application struct {
	obs      *observability.Observability
	store    cache.Cache
	policies *policy.Engine
	workers  *pool.Pool
	routes   *router.Router
	server   *listener.Server
	admin    *admin.Server
	checker  *health.Checker

	// cfg is the active configuration; hot reloads swap the pointer.
	cfg atomic.Pointer[config.Config]
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx := cmd.Context()

	app, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}

	logger := app.obs.Logger()
	logger.Info("starting veloxd",
		observability.String("version", version),
		observability.String("config", configPath),
		observability.String("summary", cfg.String()),
	)

	if err := app.start(ctx); err != nil {
		app.stop(logger)
		return err
	}

	watcher := startConfigWatcher(app, logger)

	waitForShutdown(app, watcher, logger)
	return nil
}

// buildApplication wires every component from the configuration.
func buildApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{}
	app.cfg.Store(cfg)

	obs, err := observability.New(observabilityConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create observability: %w", err)
	}
	if err := obs.Start(ctx); err != nil {
		return nil, fmt.Errorf("start observability: %w", err)
	}
	app.obs = obs
	logger := obs.Logger()

	store, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	app.store = store

	policies, err := policy.NewEngine(cfg.Uploads.Policies, policy.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("compile upload policies: %w", err)
	}
	app.policies = policies

	app.workers = pool.New(
		pool.WithWorkers(cfg.Pool.Workers),
		pool.WithQueueCapacity(cfg.Pool.QueueCapacity),
		pool.WithTaskTimeout(cfg.Pool.TaskTimeout.Duration()),
		pool.WithRestartDelay(cfg.Pool.RestartDelay.Duration()),
		pool.WithHealthInterval(cfg.Pool.HealthInterval.Duration()),
		pool.WithHealthTimeout(cfg.Pool.HealthTimeout.Duration()),
		pool.WithShutdownGrace(cfg.Pool.ShutdownGrace.Duration()),
		pool.WithLogger(logger),
	)
	for _, executor := range task.Executors(policies, store, logger) {
		if err := app.workers.Register(executor); err != nil {
			return nil, fmt.Errorf("register executor: %w", err)
		}
	}

	app.routes = router.New(
		router.WithCache(cfg.Router.CachePolicy, cfg.Router.CacheCapacity),
		router.WithLogger(logger),
	)
	if err := registerRoutes(app.routes, app.workers, logger); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(app.routes,
		dispatch.WithLogger(logger),
		dispatch.WithTracer(obs.Tracer()),
		dispatch.WithDevelopment(cfg.Development()),
	)

	server, err := listener.New(cfg.Server, dispatcher, listener.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}
	app.server = server

	app.checker = health.NewChecker(version, health.WithLogger(logger))
	app.checker.RegisterCheck("pool", health.PoolCheck(app.workers))
	app.checker.RegisterCheck("cache", health.CacheCheck(store), health.Optional())

	app.admin = admin.New(cfg.Admin,
		admin.WithLogger(logger),
		admin.WithChecker(app.checker),
		admin.WithMetrics(obs.Metrics()),
		admin.WithRouter(app.routes),
		admin.WithPool(app.workers),
		admin.WithConfigSource(app.cfg.Load),
	)

	return app, nil
}

// start brings the pool, the data plane, and the admin plane up, in
// that order so the first request already has workers behind it.
func (a *application) start(ctx context.Context) error {
	if err := a.workers.Start(ctx); err != nil {
		return fmt.Errorf("start pool: %w", err)
	}

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if err := a.admin.Start(ctx); err != nil {
		return fmt.Errorf("start admin server: %w", err)
	}

	return nil
}

// stop tears the application down in reverse start order.
func (a *application) stop(logger observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.admin != nil {
		if err := a.admin.Stop(ctx); err != nil {
			logger.Error("failed to stop admin server", observability.Error(err))
		}
	}

	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			logger.Error("failed to stop server", observability.Error(err))
		}
	}

	if a.workers != nil {
		if err := a.workers.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down pool", observability.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Error("failed to close cache", observability.Error(err))
		}
	}

	if a.obs != nil {
		if err := a.obs.Stop(ctx); err != nil {
			logger.Error("failed to stop observability", observability.Error(err))
		}
	}
}

// startConfigWatcher watches the config file and applies hot-reloadable
// sections: upload policies and the log level. Sections needing a
// restart are logged and left untouched.
func startConfigWatcher(app *application, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		prev := app.cfg.Load()

		if sections := config.RestartRequired(prev, next); len(sections) > 0 {
			logger.Warn("configuration sections changed that require a restart",
				observability.Any("sections", sections))
		}

		if err := app.policies.Replace(next.Uploads.Policies); err != nil {
			logger.Error("failed to apply new upload policies", observability.Error(err))
		} else {
			logger.Info("upload policies reloaded",
				observability.Int("rules", len(next.Uploads.Policies)))
		}

		if prev.Observability.Log.Level != next.Observability.Log.Level {
			if err := app.obs.SetLogLevel(next.Observability.Log.Level); err != nil {
				logger.Error("failed to change log level", observability.Error(err))
			} else {
				logger.Info("log level changed",
					observability.String("level", next.Observability.Log.Level))
			}
		}

		app.cfg.Store(next)
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// waitForShutdown blocks until SIGINT or SIGTERM, then stops
// everything.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	if watcher != nil {
		_ = watcher.Stop()
	}

	app.stop(logger)

	logger.Info("veloxd stopped")
}

// observabilityConfig maps the daemon configuration onto the
// observability bundle.
func observabilityConfig(cfg *config.Config) *observability.Config {
	return &observability.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Mode,
		Log: observability.LogConfig{
			Level:  cfg.Observability.Log.Level,
			Format: cfg.Observability.Log.Format,
			Output: cfg.Observability.Log.Output,
		},
		MetricsEnabled:   cfg.Observability.Metrics.Enabled,
		MetricsNamespace: cfg.Observability.Metrics.Namespace,
		Tracing: observability.TracerConfig{
			ServiceName:  cfg.ServiceName,
			OTLPEndpoint: cfg.Observability.Tracing.Endpoint,
			SamplingRate: cfg.Observability.Tracing.SamplingRate,
			Enabled:      cfg.Observability.Tracing.Enabled,
		},
	}
}
