package domain

import (
	"time"
)

// DimensionType identifies the slice an AggregateRecord rolls up over.
type DimensionType string

const (
	DimensionCategory DimensionType = "category"
	DimensionCountry  DimensionType = "country"
	DimensionChannel  DimensionType = "channel"
)

// MetricType identifies the measured quantity a ComparisonRecord tracks.
type MetricType string

const (
	MetricTotalTrx          MetricType = "total_trx"
	MetricTotalAmount       MetricType = "total_amount"
	MetricTotalRevenue      MetricType = "total_revenue"
	MetricHourlySuccessRate MetricType = "hourly_success_rate"
)

// Trend classifies the day-over-day movement of a comparison group.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// AggregateRecord is a summed rollup over fact rows for one date and one
// dimension slice. The whole row is replaced atomically by upsert whenever the
// aggregation engine runs for its date; it is never patched field-by-field.
type AggregateRecord struct {
	Date           time.Time     `json:"date" gorm:"type:date;uniqueIndex:ux_aggregate;not null" validate:"required"`
	DimensionType  DimensionType `json:"dimension_type" gorm:"uniqueIndex:ux_aggregate;size:32;not null" validate:"required"`
	DimensionValue string        `json:"dimension_value" gorm:"uniqueIndex:ux_aggregate;size:64;not null" validate:"required"`
	SuccessTrx     int64         `json:"success_trx" gorm:"not null" validate:"min=0"`
	FailedTrx      int64         `json:"failed_trx" gorm:"not null" validate:"min=0"`
	AmountFils     int64         `json:"amount_fils" gorm:"not null" validate:"min=0"`
	RevenueFils    int64         `json:"revenue_fils" gorm:"not null" validate:"min=0"`
	SuccessRate    float64       `json:"success_rate" validate:"min=0,max=1"`
}

// ComparisonRecord is a current-vs-previous-calendar-day delta for one metric
// and dimension value. Previous is the literal preceding date; when no fact
// exists for it the previous value is zero and GapPercent is zero rather than
// undefined.
type ComparisonRecord struct {
	Date           time.Time  `json:"date" gorm:"type:date;uniqueIndex:ux_comparison;not null" validate:"required"`
	MetricType     MetricType `json:"metric_type" gorm:"uniqueIndex:ux_comparison;size:32;not null" validate:"required"`
	DimensionValue string     `json:"dimension_value" gorm:"uniqueIndex:ux_comparison;size:64;not null" validate:"required"`
	CurrentValue   float64    `json:"current_value"`
	PreviousValue  float64    `json:"previous_value"`
	Gap            float64    `json:"gap"`
	GapPercent     float64    `json:"gap_percent"`
	Trend          Trend      `json:"trend" gorm:"size:16" validate:"omitempty,oneof=increasing decreasing stable"`
}

// WeeklyRollupFact is the Monday-anchored weekly rollup of daily business
// facts, with week-over-week revenue growth against the equivalent prior week.
type WeeklyRollupFact struct {
	WeekStart        time.Time `json:"week_start" gorm:"type:date;uniqueIndex:ux_weekly_rollup;not null" validate:"required"`
	TotalTrx         int64     `json:"total_trx" gorm:"not null" validate:"min=0"`
	TotalAmountFils  int64     `json:"total_amount_fils" gorm:"not null" validate:"min=0"`
	TotalRevenueFils int64     `json:"total_revenue_fils" gorm:"not null" validate:"min=0"`
	RevenueGrowthPct float64   `json:"revenue_growth_pct"`
}

// GapPercent computes gap/previous*100 with the zero-previous guard required
// by comparison records.
func GapPercent(gap, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return gap / previous * 100
}

// WeekStart returns the Monday that anchors the week containing d, preserving
// d's location and truncating to midnight.
func WeekStart(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
