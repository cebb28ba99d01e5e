// Command ingest runs a single scan pass and exits. It is the operator's
// tool for backfills and ad-hoc reprocessing of a specific report date.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"opspulse/internal/aggregation"
	"opspulse/internal/archive"
	"opspulse/internal/cache"
	"opspulse/internal/config"
	"opspulse/internal/infrastructure"
	"opspulse/internal/normalizer"
	"opspulse/internal/scanner"
	"opspulse/internal/store"
	"opspulse/pkg/contracts/domain"
)

func main() {
	var (
		date    = flag.String("date", "", "process a single report date (YYYY-MM-DD) instead of scanning")
		onlyNew = flag.Bool("only-new", false, "skip dates that already have stored facts")
	)
	flag.Parse()

	if err := run(*date, *onlyNew); err != nil {
		slog.Error("ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(dateArg string, onlyNew bool) error {
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

	ctx := context.Background()

	if dateArg != "" {
		day, err := time.ParseInLocation(domain.DateFormat, dateArg, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", dateArg)
		}
		result, err := scheduler.RunForDate(ctx, day)
		if err != nil {
			return err
		}
		logger.Info("date processed",
			slog.String("date", result.Date.Format(domain.DateFormat)),
			slog.String("stage", string(result.Stage)))
		return nil
	}

	summary, err := scheduler.RunScan(ctx, onlyNew)
	if err != nil {
		return err
	}
	logger.Info("scan finished",
		slog.String("run_id", summary.RunID),
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d dates failed", summary.Failed, summary.Processed+summary.Failed)
	}
	return nil
}
