// Package scanner orchestrates the per-date pipeline over the monthly archive
// layout: discover unprocessed dates, run Extract -> Normalize -> Aggregate
// for each in chronological order, and signal cache invalidation after every
// completed date. One date's failure never aborts the scan.
//
// The processed-date set is derived from the fact store at the start of every
// scan rather than kept as separate state, which makes restarts safe by
// construction: what is done is whatever the data says is done.
package scanner

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"opspulse/internal/errors"
	"opspulse/internal/infrastructure"
	"opspulse/pkg/contracts/domain"
)

// Stage identifies where a date is in its pipeline.
type Stage string

const (
	StageDiscovered  Stage = "discovered"
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageAggregating Stage = "aggregating"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

// DateLister exposes the distinct-dates query the processed-date set derives
// from.
type DateLister interface {
	DistinctDates(ctx context.Context) ([]time.Time, error)
}

// Extractor unpacks one archive into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
	Cleanup(destDir string) error
}

// Normalizer converts one extracted bundle into fact rows.
type Normalizer interface {
	Normalize(ctx context.Context, extractDir string, date time.Time) error
}

// Aggregator computes derived aggregates for one date.
type Aggregator interface {
	CalculateDailyAggregates(ctx context.Context, date time.Time) error
}

// CacheInvalidator signals the downstream read layer after a completed date.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// DateResult records one date's final stage at the end of a scan.
type DateResult struct {
	Date    time.Time `json:"date"`
	Stage   Stage     `json:"stage"`
	Skipped bool      `json:"skipped"`
	Error   string    `json:"error,omitempty"`
}

// ScanSummary reports one scan run.
type ScanSummary struct {
	RunID      string       `json:"run_id"`
	OnlyNew    bool         `json:"only_new"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Processed  int          `json:"processed"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Results    []DateResult `json:"results"`
}

// Scheduler runs scans. A single scan processes dates sequentially; only one
// scan may run at a time.
type Scheduler struct {
	logger        *slog.Logger
	archiveRoot   string
	extractDir    string
	keepExtracted bool

	lister     DateLister
	extractor  Extractor
	normalizer Normalizer
	aggregator Aggregator
	cache      CacheInvalidator

	mu      sync.Mutex
	running bool
	last    *ScanSummary
}

// Options configures a Scheduler.
type Options struct {
	ArchiveRoot   string
	ExtractDir    string
	KeepExtracted bool
}

// NewScheduler wires the pipeline components together.
func NewScheduler(logger *slog.Logger, opts Options, lister DateLister, extractor Extractor, normalizer Normalizer, aggregator Aggregator, cache CacheInvalidator) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:        logger,
		archiveRoot:   opts.ArchiveRoot,
		extractDir:    opts.ExtractDir,
		keepExtracted: opts.KeepExtracted,
		lister:        lister,
		extractor:     extractor,
		normalizer:    normalizer,
		aggregator:    aggregator,
		cache:         cache,
	}
}

// Running reports whether a scan is currently in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastSummary returns the most recent finished scan summary, or nil.
func (s *Scheduler) LastSummary() *ScanSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunInitialScan is the startup variant: every discoverable date is
// re-processed. Safe because all writes are idempotent upserts.
func (s *Scheduler) RunInitialScan(ctx context.Context) (*ScanSummary, error) {
	return s.RunScan(ctx, false)
}

// RunScan discovers candidate dates and runs the full per-date pipeline over
// them in chronological order. With onlyNew, dates already present in the
// fact store are skipped. Per-date failures are recorded and the scan
// continues; the scan itself fails only when discovery or the processed-date
// query fails, or when another scan is already running.
func (s *Scheduler) RunScan(ctx context.Context, onlyNew bool) (*ScanSummary, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	runID := uuid.NewString()
	ctx = infrastructure.WithTraceID(ctx, runID)

	summary := &ScanSummary{
		RunID:     runID,
		OnlyNew:   onlyNew,
		StartedAt: time.Now().UTC(),
	}

	processed, err := s.processedDates(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := DiscoverArchives(s.archiveRoot)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "scan started",
		slog.Bool("only_new", onlyNew),
		slog.Int("candidates", len(candidates)),
		slog.Int("already_processed", len(processed)))

	for _, cand := range candidates {
		dateKey := cand.Date.Format(domain.DateFormat)

		if onlyNew && processed[dateKey] {
			summary.Skipped++
			summary.Results = append(summary.Results, DateResult{Date: cand.Date, Stage: StageComplete, Skipped: true})
			continue
		}

		result := s.processDate(ctx, cand)
		summary.Results = append(summary.Results, result)

		if result.Stage == StageComplete {
			summary.Processed++
			s.invalidateCache(ctx, cand.Date)
		} else {
			// one date's failure must never abort the scan
			summary.Failed++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	s.setLast(summary)

	s.logger.InfoContext(ctx, "scan finished",
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}

// RunForDate is the manual operational entry point: run the full pipeline for
// one date regardless of whether it was processed before.
func (s *Scheduler) RunForDate(ctx context.Context, date time.Time) (*DateResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	runID := uuid.NewString()
	ctx = infrastructure.WithTraceID(ctx, runID)

	path, err := FindArchive(s.archiveRoot, date)
	if err != nil {
		return nil, err
	}

	result := s.processDate(ctx, Candidate{Date: date, Path: path})
	if result.Stage == StageComplete {
		s.invalidateCache(ctx, date)
	}
	return &result, nil
}

// processDate runs the single-date state machine:
// Discovered -> Extracting -> Normalizing -> Aggregating -> Complete,
// with any stage able to fail without affecting other dates.
func (s *Scheduler) processDate(ctx context.Context, cand Candidate) DateResult {
	dateKey := cand.Date.Format(domain.DateFormat)
	logger := s.logger.With(slog.String("date", dateKey))
	dest := filepath.Join(s.extractDir, cand.Date.Format("20060102"))

	stage := StageExtracting
	logger.InfoContext(ctx, "processing date", slog.String("archive", cand.Path))

	if err := s.extractor.Extract(ctx, cand.Path, dest); err != nil {
		return s.failDate(ctx, logger, cand.Date, stage, err)
	}

	stage = StageNormalizing
	if err := s.normalizer.Normalize(ctx, dest, cand.Date); err != nil {
		s.cleanup(ctx, logger, dest)
		return s.failDate(ctx, logger, cand.Date, stage, err)
	}

	stage = StageAggregating
	if err := s.aggregator.CalculateDailyAggregates(ctx, cand.Date); err != nil {
		s.cleanup(ctx, logger, dest)
		return s.failDate(ctx, logger, cand.Date, stage, err)
	}

	s.cleanup(ctx, logger, dest)

	logger.InfoContext(ctx, "date complete")
	return DateResult{Date: cand.Date, Stage: StageComplete}
}

func (s *Scheduler) failDate(ctx context.Context, logger *slog.Logger, date time.Time, stage Stage, err error) DateResult {
	logger.ErrorContext(ctx, "date failed",
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()))
	return DateResult{Date: date, Stage: StageFailed, Error: string(stage) + ": " + err.Error()}
}

// cleanup removes the extraction directory. Failures are warnings only.
func (s *Scheduler) cleanup(ctx context.Context, logger *slog.Logger, dest string) {
	if s.keepExtracted {
		return
	}
	if err := s.extractor.Cleanup(dest); err != nil {
		logger.WarnContext(ctx, "failed to clean up extracted files",
			slog.String("dir", dest),
			slog.String("error", err.Error()))
	}
}

// invalidateCache issues the full invalidation signal after a completed date.
// An invalidation failure does not un-complete the date; readers will serve
// stale data until the next signal, which is logged loudly.
func (s *Scheduler) invalidateCache(ctx context.Context, date time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.ErrorContext(ctx, "cache invalidation failed",
			slog.String("date", date.Format(domain.DateFormat)),
			slog.String("error", err.Error()))
	}
}

// processedDates derives the set of already-ingested dates from the store.
func (s *Scheduler) processedDates(ctx context.Context) (map[string]bool, error) {
	dates, err := s.lister.DistinctDates(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d.Format(domain.DateFormat)] = true
	}
	return set, nil
}

func (s *Scheduler) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.NewAppError(errors.ErrTypeValidation, "a scan is already running", nil)
	}
	s.running = true
	return nil
}

func (s *Scheduler) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) setLast(summary *ScanSummary) {
	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()
}
