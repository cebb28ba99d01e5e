package aggregation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opspulse/pkg/contracts/domain"
)

func TestAggregateByCategory(t *testing.T) {
	store := newFakeStore()
	store.daily[key(aggDate)] = []domain.DailyBusinessFact{
		{Date: aggDate, Category: "P2P", SuccessTrx: 60, FailedTrx: 20, AmountFils: 1_000, RevenueFils: 10},
		{Date: aggDate, Category: "P2P", SuccessTrx: 40, FailedTrx: 5, AmountFils: 500, RevenueFils: 5},
		{Date: aggDate, Category: "Bills", SuccessTrx: 30, FailedTrx: 0, AmountFils: 300, RevenueFils: 3},
	}

	engine := NewEngine(nil, store)
	require.NoError(t, engine.aggregateByCategory(context.Background(), aggDate))

	records := store.aggregatesOf(domain.DimensionCategory)
	require.Len(t, records, 2)

	// deterministic order by dimension value
	assert.Equal(t, "Bills", records[0].DimensionValue)
	assert.Equal(t, "P2P", records[1].DimensionValue)

	p2p := records[1]
	assert.Equal(t, int64(100), p2p.SuccessTrx)
	assert.Equal(t, int64(25), p2p.FailedTrx)
	assert.Equal(t, int64(1_500), p2p.AmountFils)
	assert.Equal(t, int64(15), p2p.RevenueFils)
	assert.InDelta(t, 0.8, p2p.SuccessRate, 1e-9)

	assert.InDelta(t, 1.0, records[0].SuccessRate, 1e-9)
}

func TestAggregateByCountryMergesDirections(t *testing.T) {
	store := newFakeStore()
	store.countries[key(aggDate)] = []domain.CountryFlowFact{
		{Date: aggDate, Country: "AE", Direction: domain.FlowInbound, TrxCount: 120, AmountFils: 4_500_000},
		{Date: aggDate, Country: "AE", Direction: domain.FlowOutbound, TrxCount: 60, AmountFils: 1_000_000},
		{Date: aggDate, Country: "SA", Direction: domain.FlowInbound, TrxCount: 80, AmountFils: 2_000_000},
	}

	engine := NewEngine(nil, store)
	require.NoError(t, engine.aggregateByCountry(context.Background(), aggDate))

	records := store.aggregatesOf(domain.DimensionCountry)
	require.Len(t, records, 2)

	ae := records[0]
	assert.Equal(t, "AE", ae.DimensionValue)
	assert.Equal(t, int64(180), ae.SuccessTrx)
	assert.Equal(t, int64(5_500_000), ae.AmountFils)
}

func TestWeeklyRollup(t *testing.T) {
	store := newFakeStore()
	weekStart := domain.WeekStart(aggDate)

	// Two days of the current week.
	store.daily[key(weekStart)] = []domain.DailyBusinessFact{
		{Date: weekStart, Category: "P2P", SuccessTrx: 60, FailedTrx: 20, AmountFils: 1_000, RevenueFils: 100},
	}
	store.daily[key(aggDate)] = []domain.DailyBusinessFact{
		{Date: aggDate, Category: "P2P", SuccessTrx: 40, FailedTrx: 0, AmountFils: 500, RevenueFils: 100},
	}
	// One day of the prior week.
	store.daily[key(weekStart.AddDate(0, 0, -3))] = []domain.DailyBusinessFact{
		{Date: weekStart.AddDate(0, 0, -3), Category: "P2P", SuccessTrx: 10, FailedTrx: 0, AmountFils: 100, RevenueFils: 160},
	}

	engine := NewEngine(nil, store)
	require.NoError(t, engine.weeklyRollup(context.Background(), aggDate))

	require.Len(t, store.rollups, 1)
	rollup := store.rollups[0]
	assert.Equal(t, weekStart, rollup.WeekStart)
	assert.Equal(t, int64(120), rollup.TotalTrx)
	assert.Equal(t, int64(1_500), rollup.TotalAmountFils)
	assert.Equal(t, int64(200), rollup.TotalRevenueFils)
	// (200-160)/160 * 100
	assert.InDelta(t, 25, rollup.RevenueGrowthPct, 1e-9)
}

func TestWeeklyRollupZeroPriorWeek(t *testing.T) {
	store := newFakeStore()
	store.daily[key(aggDate)] = []domain.DailyBusinessFact{
		{Date: aggDate, Category: "P2P", SuccessTrx: 40, RevenueFils: 100},
	}

	engine := NewEngine(nil, store)
	require.NoError(t, engine.weeklyRollup(context.Background(), aggDate))

	require.Len(t, store.rollups, 1)
	assert.InDelta(t, 0, store.rollups[0].RevenueGrowthPct, 1e-9)
}

func TestHourlyPerformanceDeltas(t *testing.T) {
	store := newFakeStore()
	prevDate := aggDate.AddDate(0, 0, -1)

	store.performance[key(aggDate)] = []domain.HourlyPerformanceFact{
		{Date: aggDate, Hour: 7, SuccessRate: 0.9},
		{Date: aggDate, Hour: 8, SuccessRate: 0.5},
		{Date: aggDate, Hour: 9, SuccessRate: 0.7},
	}
	store.performance[key(prevDate)] = []domain.HourlyPerformanceFact{
		{Date: prevDate, Hour: 7, SuccessRate: 0.8},
		{Date: prevDate, Hour: 8, SuccessRate: 0.6},
		// hour 9 missing from the previous date
	}

	engine := NewEngine(nil, store)
	require.NoError(t, engine.hourlyPerformanceDeltas(context.Background(), aggDate))

	records := store.comparisonsOf(domain.MetricHourlySuccessRate)
	require.Len(t, records, 3)

	h7 := records[0]
	assert.Equal(t, "07", h7.DimensionValue)
	assert.InDelta(t, 0.1, h7.Gap, 1e-9)
	assert.InDelta(t, 12.5, h7.GapPercent, 1e-9)
	assert.Equal(t, domain.TrendIncreasing, h7.Trend)

	h8 := records[1]
	assert.Equal(t, domain.TrendDecreasing, h8.Trend)

	// Missing previous hour compares against zero with a finite gap percent.
	h9 := records[2]
	assert.InDelta(t, 0, h9.PreviousValue, 1e-9)
	assert.InDelta(t, 0.7, h9.Gap, 1e-9)
	assert.InDelta(t, 0, h9.GapPercent, 1e-9)
	assert.Equal(t, domain.TrendIncreasing, h9.Trend)
}

func TestDailyTrendClassification(t *testing.T) {
	prevDate := aggDate.AddDate(0, 0, -1)

	tests := []struct {
		name     string
		current  domain.DailyBusinessFact
		previous domain.DailyBusinessFact
		expected domain.Trend
	}{
		{
			name:     "all metrics up",
			current:  domain.DailyBusinessFact{Category: "P2P", SuccessTrx: 200, AmountFils: 2_000, RevenueFils: 20},
			previous: domain.DailyBusinessFact{Category: "P2P", SuccessTrx: 100, AmountFils: 1_000, RevenueFils: 10},
			expected: domain.TrendIncreasing,
		},
		{
			name:     "all metrics down",
			current:  domain.DailyBusinessFact{Category: "P2P", SuccessTrx: 50, AmountFils: 500, RevenueFils: 5},
			previous: domain.DailyBusinessFact{Category: "P2P", SuccessTrx: 100, AmountFils: 1_000, RevenueFils: 10},
			expected: domain.TrendDecreasing,
		},
		{
			name:     "mixed movement is stable",
			current:  domain.DailyBusinessFact{Category: "P2P", SuccessTrx: 200, AmountFils: 500, RevenueFils: 20},
			previous: domain.DailyBusinessFact{Category: "P2P", SuccessTrx: 100, AmountFils: 1_000, RevenueFils: 10},
			expected: domain.TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.current.Date = aggDate
			tt.previous.Date = prevDate
			store.daily[key(aggDate)] = []domain.DailyBusinessFact{tt.current}
			store.daily[key(prevDate)] = []domain.DailyBusinessFact{tt.previous}

			engine := NewEngine(nil, store)
			require.NoError(t, engine.dailyTrend(context.Background(), aggDate))

			require.Len(t, store.comparisons, 3)
			for _, rec := range store.comparisons {
				assert.Equal(t, tt.expected, rec.Trend)
				assert.Equal(t, "all", rec.DimensionValue)
			}
		})
	}
}

func TestDailyTrendMissingPreviousDate(t *testing.T) {
	store := newFakeStore()
	store.daily[key(aggDate)] = []domain.DailyBusinessFact{
		{Date: aggDate, Category: "P2P", SuccessTrx: 100, AmountFils: 1_000, RevenueFils: 10},
	}

	engine := NewEngine(nil, store)
	require.NoError(t, engine.dailyTrend(context.Background(), aggDate))

	records := store.comparisonsOf(domain.MetricTotalTrx)
	require.Len(t, records, 1)
	assert.InDelta(t, 0, records[0].PreviousValue, 1e-9)
	assert.InDelta(t, 0, records[0].GapPercent, 1e-9)
	assert.Equal(t, domain.TrendIncreasing, records[0].Trend)
}
