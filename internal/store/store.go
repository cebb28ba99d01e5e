// Package store is the persistence facade for fact, aggregate, and comparison
// records. Every mutation goes through an idempotent batched upsert keyed on
// the record type's natural key, so re-ingesting a date updates rows in place
// and never duplicates them. Reads are limited to the narrow contract the
// pipeline needs: distinct dates, per-date lookups, and date ranges.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"opspulse/internal/errors"
	"opspulse/pkg/contracts/domain"
)

const upsertBatchSize = 100

// Store implements the fact-store contract on a gorm connection.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a fact store facade.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// AutoMigrate creates or updates the fact and aggregate tables, including the
// composite unique indexes the upserts conflict on.
func (s *Store) AutoMigrate() error {
	err := s.db.AutoMigrate(
		&domain.DailyBusinessFact{},
		&domain.HourlyBusinessFact{},
		&domain.CountryFlowFact{},
		&domain.ChannelRevenueFact{},
		&domain.ActiveUsersFact{},
		&domain.HourlyPerformanceFact{},
		&domain.WeeklyRollupFact{},
		&domain.AggregateRecord{},
		&domain.ComparisonRecord{},
	)
	if err != nil {
		return errors.NewStorageError("failed to migrate fact tables", err)
	}
	return nil
}

// upsert writes rows in batches, updating on natural-key conflict. rows must
// be a slice of gorm models; conflictCols is the natural key and updateCols
// the full set of non-key columns, so a conflicting row is replaced whole.
func (s *Store) upsert(ctx context.Context, rows interface{}, count int, conflictCols, updateCols []string) error {
	if count == 0 {
		return nil
	}

	columns := make([]clause.Column, len(conflictCols))
	for i, c := range conflictCols {
		columns[i] = clause.Column{Name: c}
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   columns,
		DoUpdates: clause.AssignmentColumns(updateCols),
	})

	if err := tx.CreateInBatches(rows, upsertBatchSize).Error; err != nil {
		return errors.NewStorageError("batched upsert failed", err).
			WithContext("rows", count)
	}

	return nil
}

// UpsertDailyBusiness writes daily business facts keyed by (date, category).
func (s *Store) UpsertDailyBusiness(ctx context.Context, rows []domain.DailyBusinessFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "category"},
		[]string{"success_trx", "failed_trx", "amount_fils", "revenue_fils", "success_rate", "revenue_rate"})
}

// UpsertHourlyBusiness writes hourly business facts keyed by (date, hour, category).
func (s *Store) UpsertHourlyBusiness(ctx context.Context, rows []domain.HourlyBusinessFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "hour", "category"},
		[]string{"success_trx", "failed_trx", "amount_fils"})
}

// UpsertCountryFlow writes country flow facts keyed by (date, country, direction).
func (s *Store) UpsertCountryFlow(ctx context.Context, rows []domain.CountryFlowFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "country", "direction"},
		[]string{"trx_count", "amount_fils"})
}

// UpsertChannelRevenue writes channel revenue facts keyed by (date, channel).
func (s *Store) UpsertChannelRevenue(ctx context.Context, rows []domain.ChannelRevenueFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "channel"},
		[]string{"trx_count", "amount_fils", "revenue_fils", "revenue_rate"})
}

// UpsertActiveUsers writes active-user facts keyed by (date, segment).
func (s *Store) UpsertActiveUsers(ctx context.Context, rows []domain.ActiveUsersFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "segment"},
		[]string{"active_users", "new_users"})
}

// UpsertHourlyPerformance writes hourly performance facts keyed by (date, hour).
func (s *Store) UpsertHourlyPerformance(ctx context.Context, rows []domain.HourlyPerformanceFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "hour"},
		[]string{"success_trx", "failed_trx", "amount_fils", "success_rate"})
}

// UpsertAggregates writes aggregate records keyed by (date, dimension_type,
// dimension_value). Whole-row replacement on conflict.
func (s *Store) UpsertAggregates(ctx context.Context, rows []domain.AggregateRecord) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "dimension_type", "dimension_value"},
		[]string{"success_trx", "failed_trx", "amount_fils", "revenue_fils", "success_rate"})
}

// UpsertComparisons writes comparison records keyed by (date, metric_type,
// dimension_value).
func (s *Store) UpsertComparisons(ctx context.Context, rows []domain.ComparisonRecord) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"date", "metric_type", "dimension_value"},
		[]string{"current_value", "previous_value", "gap", "gap_percent", "trend"})
}

// UpsertWeeklyRollups writes weekly rollups keyed by week_start.
func (s *Store) UpsertWeeklyRollups(ctx context.Context, rows []domain.WeeklyRollupFact) error {
	return s.upsert(ctx, rows, len(rows),
		[]string{"week_start"},
		[]string{"total_trx", "total_amount_fils", "total_revenue_fils", "revenue_growth_pct"})
}

// DistinctDates returns the set of dates already present in the primary fact
// type, ascending. The scheduler derives its processed-date set from this at
// the start of every scan instead of keeping separate state.
func (s *Store) DistinctDates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := s.db.WithContext(ctx).
		Model(&domain.DailyBusinessFact{}).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	if err != nil {
		return nil, errors.NewStorageError("failed to load distinct fact dates", err)
	}
	return dates, nil
}

// DailyBusinessByDate returns all daily business facts for one date.
func (s *Store) DailyBusinessByDate(ctx context.Context, date time.Time) ([]domain.DailyBusinessFact, error) {
	var rows []domain.DailyBusinessFact
	if err := s.findByDate(ctx, date, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// DailyBusinessByDateRange returns daily business facts for [from, to]
// inclusive, ordered by date.
func (s *Store) DailyBusinessByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailyBusinessFact, error) {
	var rows []domain.DailyBusinessFact
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", dateOnly(from), dateOnly(to)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.NewStorageError("failed to query daily business range", err)
	}
	return rows, nil
}

// CountryFlowByDate returns all country flow facts for one date.
func (s *Store) CountryFlowByDate(ctx context.Context, date time.Time) ([]domain.CountryFlowFact, error) {
	var rows []domain.CountryFlowFact
	if err := s.findByDate(ctx, date, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ChannelRevenueByDate returns all channel revenue facts for one date.
func (s *Store) ChannelRevenueByDate(ctx context.Context, date time.Time) ([]domain.ChannelRevenueFact, error) {
	var rows []domain.ChannelRevenueFact
	if err := s.findByDate(ctx, date, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// HourlyPerformanceByDate returns all hourly performance facts for one date.
func (s *Store) HourlyPerformanceByDate(ctx context.Context, date time.Time) ([]domain.HourlyPerformanceFact, error) {
	var rows []domain.HourlyPerformanceFact
	if err := s.findByDate(ctx, date, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) findByDate(ctx context.Context, date time.Time, dest interface{}) error {
	err := s.db.WithContext(ctx).
		Where("date = ?", dateOnly(date)).
		Find(dest).Error
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to query facts for %s", date.Format(domain.DateFormat)), err)
	}
	return nil
}

// Ping reports whether the underlying database connection is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.NewStorageError("failed to access database handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.NewStorageError("database unreachable", err)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
