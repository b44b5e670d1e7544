// Command overlayd serves the overlay ConfigStore: the storefront read
// endpoint, the admin API and the MCP admin tools, over one SQLite file.
//
// Usage:
//
//	overlayd -config overlay.yaml
//	overlayd -db overlay.db -addr :8420
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/shopoverlay/config"
	"github.com/hazyhaar/shopoverlay/configstore"
	"github.com/hazyhaar/shopoverlay/dbopen"
	"github.com/hazyhaar/shopoverlay/observability"
	"github.com/hazyhaar/shopoverlay/watch"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	logLevel := flag.String("log-level", "", "debug|info|warn|error (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("overlayd: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func newLogger(lc config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(observability.NewFilterHandler(h, lc.Mute)), nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	db, err := dbopen.Open(cfg.Server.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(configstore.Schema),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	events := observability.NewEventLogger(db, observability.WithEventLogger(logger))
	store := configstore.New(db, configstore.WithLogger(logger), configstore.WithEvents(events))
	cached := configstore.NewCached(store, cfg.Server.CacheTTL)
	eps := configstore.MakeEndpoints(cached, logger)

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "overlayd", Version: "1.0.0"}, nil)
	configstore.RegisterMCP(mcpSrv, eps)

	r := chi.NewRouter()
	r.Mount("/", configstore.Routes(eps, logger))
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	w := watch.New(db, watch.Options{
		Interval: cfg.Server.WatchInterval,
		Detector: configstore.RevisionDetector,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	// Writes from other processes sharing the file invalidate the cache.
	g.Go(func() error {
		w.OnChange(gctx, func() error {
			cached.Flush()
			logger.Debug("overlayd: cache flushed")
			return nil
		})
		return nil
	})

	if days := cfg.Server.EventRetentionDays; days > 0 {
		g.Go(func() error {
			pruneEvents(gctx, logger, events, days)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("overlayd: listening", "addr", cfg.Server.Addr, "db", cfg.Server.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("overlayd: shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func pruneEvents(ctx context.Context, logger *slog.Logger, events *observability.EventLogger, days int) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		n, err := events.Cleanup(ctx, days)
		if err != nil {
			logger.Warn("overlayd: event cleanup", "error", err)
		} else if n > 0 {
			logger.Info("overlayd: event cleanup", "deleted", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
