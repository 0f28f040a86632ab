package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/frontdesk/internal/api"
	"github.com/ashureev/frontdesk/internal/knowledge"
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/ashureev/frontdesk/internal/middleware"
	"github.com/ashureev/frontdesk/internal/receptionist"
	"github.com/ashureev/frontdesk/internal/store"
	"github.com/ashureev/frontdesk/internal/telemetry"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, lifecycle timers and the timeout sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		return err
	}
	defer closeStore(repo)
	slog.Info("Store connected", "driver", cfg.Store.Driver)

	if cfg.Knowledge.Seed {
		entries, err := store.LoadSeed(cfg.Knowledge.SeedPath)
		if err != nil {
			slog.Error("Failed to load knowledge seed", "path", cfg.Knowledge.SeedPath, "error", err)
			return err
		}
		n, err := store.Seed(ctx, repo, entries)
		if err != nil {
			slog.Error("Failed to seed knowledge base", "error", err)
			return err
		}
		slog.Info("Knowledge base seeded", "added", n)
	}

	// Initialize services.
	mgr := lifecycle.New(repo,
		lifecycle.WithSLAWindow(cfg.Lifecycle.SLAWindow),
		lifecycle.WithSweepInterval(cfg.Lifecycle.SweepInterval),
		lifecycle.WithEventLogCapacity(cfg.Lifecycle.EventLogCap),
		lifecycle.WithNotifier(lifecycle.NewLogNotifier(cfg.BusinessName, logger)),
		lifecycle.WithLogger(logger),
	)
	defer mgr.Stop()
	slog.Info("Lifecycle manager configured", "sla_window", mgr.SLAWindow())

	matcher := knowledge.NewMatcher(repo, logger)
	calls := receptionist.NewService(matcher, mgr, cfg.BusinessName, logger)
	calls.Attach(mgr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.New(mgr, reg, logger)
	if err != nil {
		slog.Error("Failed to register metrics", "error", err)
		return err
	}
	mgr.AddListener(metrics.Observe)

	hub := api.NewEventHub(cfg.CORSAllowedOrigins)
	mgr.AddListener(hub.Publish)

	// Re-arm pending requests and start the sweep.
	if err := mgr.Start(ctx); err != nil {
		slog.Error("Failed to start lifecycle manager", "error", err)
		return err
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	api.NewHandler(mgr, repo, matcher, calls, hub).RegisterRoutes(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Note: the websocket feed needs long-lived connections (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Wait for shutdown signal.
		<-gctx.Done()
		stop()

		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		return err
	}

	slog.Info("Server stopped successfully")
	return nil
}
