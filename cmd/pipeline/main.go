// Command pipeline is the long-running ingestion service: it runs the
// initial scan on startup, schedules the daily only-new scan, and serves the
// HTTP trigger surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-co-op/gocron"

	"opspulse/internal/aggregation"
	"opspulse/internal/archive"
	"opspulse/internal/cache"
	"opspulse/internal/config"
	"opspulse/internal/infrastructure"
	"opspulse/internal/normalizer"
	"opspulse/internal/scanner"
	"opspulse/internal/store"
	transporthttp "opspulse/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pipeline service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	db, err := store.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open fact store: %w", err)
	}

	factStore := store.NewStore(db, logger)
	if err := factStore.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate fact store: %w", err)
	}

	redisClient, err := cache.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	extractor := archive.NewExtractor(logger, cfg.Scan.ExtractionTimeout)
	norm := normalizer.NewNormalizer(logger, factStore)
	engine := aggregation.NewEngine(logger, factStore)

	scheduler := scanner.NewScheduler(logger, scanner.Options{
		ArchiveRoot:   cfg.Paths.ArchiveRoot,
		ExtractDir:    cfg.Paths.ExtractDir,
		KeepExtracted: cfg.Scan.KeepExtracted,
	}, factStore, extractor, norm, engine, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Startup variant: process everything discoverable. Idempotent upserts
	// make the re-run safe after a crash.
	go func() {
		if _, err := scheduler.RunInitialScan(ctx); err != nil {
			logger.Error("initial scan failed", slog.String("error", err.Error()))
		}
	}()

	// Scheduled variant: once per day, new dates only.
	cron := gocron.NewScheduler(time.UTC)
	if _, err := cron.Every(1).Day().At(cfg.Scan.DailyAt).Do(func() {
		if _, err := scheduler.RunScan(ctx, true); err != nil {
			logger.Error("scheduled scan failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("schedule daily scan: %w", err)
	}
	cron.StartAsync()
	defer cron.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      buildRouter(cfg, logger, scheduler, factStore, redisClient),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trigger surface listening", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildRouter(cfg *config.Config, logger *slog.Logger, scheduler *scanner.Scheduler, factStore *store.Store, redisClient *cache.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	scanHandler := transporthttp.NewScanHandler(scheduler, logger, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	r.Mount("/api/v1", scanHandler.Routes())

	healthHandler := transporthttp.NewHealthHandler(map[string]transporthttp.Pinger{
		"fact_store": func(ctx context.Context) error { return factStore.Ping(ctx) },
		"cache":      func(ctx context.Context) error { return redisClient.Ping(ctx) },
	})
	r.Get("/healthz", healthHandler.HealthCheck)

	return r
}
