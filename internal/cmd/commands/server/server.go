package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	apiv1 "github.com/waypost/waypost/internal/api/v1"
	"github.com/waypost/waypost/internal/cmd/base"
	"github.com/waypost/waypost/internal/config"
	"github.com/waypost/waypost/internal/migrate"
	"github.com/waypost/waypost/internal/pgnotify"
	"github.com/waypost/waypost/internal/server"
	"github.com/waypost/waypost/pkg/database"
	"github.com/waypost/waypost/pkg/nodeview"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// termination signal.
const shutdownTimeout = 10 * time.Second

type Command struct {
	*base.Command

	flagConfig string
	flagAddr   string
	flagDBPath string
}

func (c *Command) Synopsis() string {
	return "Run the Waypost node resolution server"
}

func (c *Command) Help() string {
	return `Usage: waypost server
       waypost server -config=config.hcl

  Run the Waypost server, which maintains the unified node view and
  serves node resolution over HTTP.

  Without -config, Waypost runs against an embedded SQLite database
  (created on first start) and listens on ` + config.DefaultAddr + `.

` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("server", flag.ExitOnError))

	f.StringVar(
		&c.flagConfig, "config", "",
		"Path to the Waypost configuration file. Omit to run in embedded mode.",
	)
	f.StringVar(
		&c.flagAddr, "addr", "",
		"Listen address, overriding the configuration file.",
	)
	f.StringVar(
		&c.flagDBPath, "db-path", "",
		"SQLite database path for embedded mode (default "+config.DefaultSQLitePath+").",
	)

	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	// Load configuration, or fall back to embedded mode.
	var cfg *config.Config
	if c.flagConfig != "" {
		var err error
		cfg, err = config.Load(c.flagConfig)
		if err != nil {
			ui.Error(fmt.Sprintf("error loading configuration: %v", err))
			return 1
		}
	} else {
		cfg = config.Embedded(c.flagDBPath)
		ui.Info(fmt.Sprintf(
			"No configuration file given, using embedded SQLite database at %s",
			cfg.Database.Path))
	}

	if c.flagAddr != "" {
		cfg.Server.Addr = c.flagAddr
	}

	log := c.Log
	if cfg.LogFormat == "json" {
		log = hclog.New(&hclog.LoggerOptions{
			Name:       "waypost",
			JSONFormat: true,
		})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.run(ctx, cfg, log); err != nil {
		ui.Error(fmt.Sprintf("error running server: %v", err))
		return 1
	}

	ui.Info("Waypost server stopped")
	return 0
}

func (c *Command) run(ctx context.Context, cfg *config.Config, log hclog.Logger) error {
	dbCfg := cfg.DatabaseConfig()

	// Embedded databases live in a directory we may need to create.
	if dbCfg.Type == database.TypeSQLite && dbCfg.Path != ":memory:" {
		if dir := filepath.Dir(dbCfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := database.ConnectWithRetry(ctx, dbCfg, log)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtaining database handle: %w", err)
	}
	defer sqlDB.Close()

	if err := migrate.RunMigrations(sqlDB, cfg.Database.Driver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if version, dirty, err := migrate.GetMigrationVersion(sqlDB, cfg.Database.Driver); err == nil {
		log.Info("database schema ready", "version", version, "dirty", dirty)
	}

	registry := nodeview.NewRegistryReader(db, log)
	manager := nodeview.NewManager(db, registry, log)
	resolver := nodeview.NewResolver(db, log)

	var nodeResolver nodeview.NodeResolver = resolver
	if !cfg.Resolver.DisableCache {
		nodeResolver = nodeview.NewCachedResolverTTL(
			resolver, manager,
			cfg.Resolver.CacheTTL(), cfg.Resolver.NegativeCacheTTL(),
			log,
		)
	}

	if !cfg.Resolver.SkipStartupRebuild {
		result, err := manager.Rebuild(ctx)
		if err != nil {
			// The server still starts; health reports degraded until an
			// operator repairs the registry and rebuilds.
			log.Error("startup view rebuild failed", "error", err)
		} else {
			log.Info("node view ready",
				"entities", result.EntityCount,
				"generation", result.Generation,
			)
		}
	}

	srv := server.Server{
		Config:     cfg,
		DB:         db,
		Logger:     log,
		Manager:    manager,
		Resolver:   nodeResolver,
		Types:      nodeview.NewTypeRegistry(),
		Discoverer: nodeview.NewDiscoverer(db, log),
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/nodes/batch", apiv1.NodesBatchHandler(srv))
	mux.Handle("/api/v1/nodes/", apiv1.NodeHandler(srv))
	mux.Handle("/api/v1/health", apiv1.HealthHandler(srv))
	mux.Handle("/api/v1/admin/rebuild-view", apiv1.RebuildViewHandler(srv))

	if cfg.Listener != nil && cfg.Listener.Enabled {
		listener, err := pgnotify.New(pgnotify.Config{
			DSN:     dbCfg.DSN(),
			Channel: cfg.Listener.Channel,
			Handler: func(ctx context.Context, payload string) {
				log.Info("registry change notification", "operation", payload)
				if _, err := manager.Rebuild(ctx); err != nil {
					log.Error("rebuild after registry change failed", "error", err)
				}
			},
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("creating registry listener: %w", err)
		}

		go func() {
			if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("registry listener exited", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		c.UI.Info(fmt.Sprintf("Waypost listening on %s", cfg.Server.Addr))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
