// Package aggregation computes the derived rollups for one ingested date:
// per-dimension aggregates, the Monday-anchored weekly rollup, hourly
// performance deltas, and the day-over-day trend classification.
//
// The categories have disjoint read/write sets and run concurrently in a
// structured task group. Every outcome is collected before the engine
// returns; a failing or panicking category is logged and never blocks its
// siblings nor fails the overall call.
package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"opspulse/internal/errors"
	"opspulse/pkg/contracts/domain"
)

// FactStore is the slice of the fact-store contract the engine needs:
// per-date and range reads plus aggregate upserts.
type FactStore interface {
	DailyBusinessByDate(ctx context.Context, date time.Time) ([]domain.DailyBusinessFact, error)
	DailyBusinessByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailyBusinessFact, error)
	CountryFlowByDate(ctx context.Context, date time.Time) ([]domain.CountryFlowFact, error)
	ChannelRevenueByDate(ctx context.Context, date time.Time) ([]domain.ChannelRevenueFact, error)
	HourlyPerformanceByDate(ctx context.Context, date time.Time) ([]domain.HourlyPerformanceFact, error)

	UpsertAggregates(ctx context.Context, rows []domain.AggregateRecord) error
	UpsertComparisons(ctx context.Context, rows []domain.ComparisonRecord) error
	UpsertWeeklyRollups(ctx context.Context, rows []domain.WeeklyRollupFact) error
}

// category is one independent aggregation task.
type category struct {
	name string
	run  func(e *Engine, ctx context.Context, date time.Time) error
}

// categories is the fixed set the engine runs per date. No category may
// depend on another's side effects within the same run.
var categories = []category{
	{name: "by_category", run: (*Engine).aggregateByCategory},
	{name: "by_country", run: (*Engine).aggregateByCountry},
	{name: "by_channel", run: (*Engine).aggregateByChannel},
	{name: "weekly_rollup", run: (*Engine).weeklyRollup},
	{name: "hourly_performance_deltas", run: (*Engine).hourlyPerformanceDeltas},
	{name: "daily_trend", run: (*Engine).dailyTrend},
}

// Engine computes aggregates for one date at a time.
type Engine struct {
	logger *slog.Logger
	store  FactStore
}

// NewEngine creates an aggregation engine over the given fact store.
func NewEngine(logger *slog.Logger, store FactStore) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, store: store}
}

// CalculateDailyAggregates runs every category for the date and collects all
// outcomes. It never returns a category failure: aggregation is best-effort
// per category, and re-running the date recomputes everything idempotently.
func (e *Engine) CalculateDailyAggregates(ctx context.Context, date time.Time) error {
	outcomes := make([]error, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		g.Go(func() error {
			outcomes[i] = e.runCategory(gctx, cat, date)
			return nil // failures are isolated, never propagated to siblings
		})
	}
	g.Wait()

	failed := 0
	for i, err := range outcomes {
		if err == nil {
			continue
		}
		failed++
		e.logger.ErrorContext(ctx, "aggregation category failed",
			slog.String("category", categories[i].name),
			slog.String("date", date.Format(domain.DateFormat)),
			slog.String("error", err.Error()))
	}

	e.logger.InfoContext(ctx, "daily aggregates calculated",
		slog.String("date", date.Format(domain.DateFormat)),
		slog.Int("categories", len(categories)),
		slog.Int("failed", failed))

	return nil
}

// runCategory executes one category, converting panics into category errors
// so a misbehaving parser upstream cannot take down the task group.
func (e *Engine) runCategory(ctx context.Context, cat category, date time.Time) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewAggregationError(cat.name, fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := cat.run(e, ctx, date); err != nil {
		return errors.NewAggregationError(cat.name, err)
	}
	return nil
}
