package aggregation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"opspulse/pkg/contracts/domain"
)

// aggregateByCategory sums daily business facts per business category.
func (e *Engine) aggregateByCategory(ctx context.Context, date time.Time) error {
	facts, err := e.store.DailyBusinessByDate(ctx, date)
	if err != nil {
		return err
	}

	type sums struct {
		success, failed, amount, revenue int64
	}
	groups := make(map[string]*sums)
	for _, f := range facts {
		g := groups[f.Category]
		if g == nil {
			g = &sums{}
			groups[f.Category] = g
		}
		g.success += f.SuccessTrx
		g.failed += f.FailedTrx
		g.amount += f.AmountFils
		g.revenue += f.RevenueFils
	}

	records := make([]domain.AggregateRecord, 0, len(groups))
	for value, g := range groups {
		records = append(records, domain.AggregateRecord{
			Date:           date,
			DimensionType:  domain.DimensionCategory,
			DimensionValue: value,
			SuccessTrx:     g.success,
			FailedTrx:      g.failed,
			AmountFils:     g.amount,
			RevenueFils:    g.revenue,
			SuccessRate:    domain.SuccessRate(g.success, g.failed),
		})
	}
	sortAggregates(records)

	return e.store.UpsertAggregates(ctx, records)
}

// aggregateByCountry sums country flow facts per country across both
// directions. Flow facts carry no failure split, so the summed count stands
// as the success side of the rate.
func (e *Engine) aggregateByCountry(ctx context.Context, date time.Time) error {
	facts, err := e.store.CountryFlowByDate(ctx, date)
	if err != nil {
		return err
	}

	type sums struct {
		count, amount int64
	}
	groups := make(map[string]*sums)
	for _, f := range facts {
		g := groups[f.Country]
		if g == nil {
			g = &sums{}
			groups[f.Country] = g
		}
		g.count += f.TrxCount
		g.amount += f.AmountFils
	}

	records := make([]domain.AggregateRecord, 0, len(groups))
	for value, g := range groups {
		records = append(records, domain.AggregateRecord{
			Date:           date,
			DimensionType:  domain.DimensionCountry,
			DimensionValue: value,
			SuccessTrx:     g.count,
			AmountFils:     g.amount,
			SuccessRate:    domain.SuccessRate(g.count, 0),
		})
	}
	sortAggregates(records)

	return e.store.UpsertAggregates(ctx, records)
}

// aggregateByChannel sums channel revenue facts per channel.
func (e *Engine) aggregateByChannel(ctx context.Context, date time.Time) error {
	facts, err := e.store.ChannelRevenueByDate(ctx, date)
	if err != nil {
		return err
	}

	type sums struct {
		count, amount, revenue int64
	}
	groups := make(map[string]*sums)
	for _, f := range facts {
		g := groups[f.Channel]
		if g == nil {
			g = &sums{}
			groups[f.Channel] = g
		}
		g.count += f.TrxCount
		g.amount += f.AmountFils
		g.revenue += f.RevenueFils
	}

	records := make([]domain.AggregateRecord, 0, len(groups))
	for value, g := range groups {
		records = append(records, domain.AggregateRecord{
			Date:           date,
			DimensionType:  domain.DimensionChannel,
			DimensionValue: value,
			SuccessTrx:     g.count,
			AmountFils:     g.amount,
			RevenueFils:    g.revenue,
			SuccessRate:    domain.SuccessRate(g.count, 0),
		})
	}
	sortAggregates(records)

	return e.store.UpsertAggregates(ctx, records)
}

// weeklyRollup sums the Monday-anchored week containing the date across its
// available daily facts and computes week-over-week revenue growth against
// the equivalent prior week. A prior-week total of zero yields growth zero.
func (e *Engine) weeklyRollup(ctx context.Context, date time.Time) error {
	weekStart := domain.WeekStart(date)
	weekEnd := weekStart.AddDate(0, 0, 6)

	current, err := e.store.DailyBusinessByDateRange(ctx, weekStart, weekEnd)
	if err != nil {
		return err
	}

	previous, err := e.store.DailyBusinessByDateRange(ctx, weekStart.AddDate(0, 0, -7), weekStart.AddDate(0, 0, -1))
	if err != nil {
		return err
	}

	var trx, amount, revenue int64
	for _, f := range current {
		trx += f.SuccessTrx + f.FailedTrx
		amount += f.AmountFils
		revenue += f.RevenueFils
	}

	var prevRevenue int64
	for _, f := range previous {
		prevRevenue += f.RevenueFils
	}

	rollup := domain.WeeklyRollupFact{
		WeekStart:        weekStart,
		TotalTrx:         trx,
		TotalAmountFils:  amount,
		TotalRevenueFils: revenue,
		RevenueGrowthPct: domain.GapPercent(float64(revenue-prevRevenue), float64(prevRevenue)),
	}

	return e.store.UpsertWeeklyRollups(ctx, []domain.WeeklyRollupFact{rollup})
}

// hourlyPerformanceDeltas compares each hour's success rate against the same
// hour of the literal preceding calendar date. Hours absent from the previous
// date compare against zero, with the gap-percent guard keeping the result
// finite.
func (e *Engine) hourlyPerformanceDeltas(ctx context.Context, date time.Time) error {
	current, err := e.store.HourlyPerformanceByDate(ctx, date)
	if err != nil {
		return err
	}

	previous, err := e.store.HourlyPerformanceByDate(ctx, date.AddDate(0, 0, -1))
	if err != nil {
		return err
	}

	prevByHour := make(map[int]domain.HourlyPerformanceFact, len(previous))
	for _, f := range previous {
		prevByHour[f.Hour] = f
	}

	records := make([]domain.ComparisonRecord, 0, len(current))
	for _, f := range current {
		prevRate := prevByHour[f.Hour].SuccessRate
		gap := f.SuccessRate - prevRate

		records = append(records, domain.ComparisonRecord{
			Date:           date,
			MetricType:     domain.MetricHourlySuccessRate,
			DimensionValue: fmt.Sprintf("%02d", f.Hour),
			CurrentValue:   f.SuccessRate,
			PreviousValue:  prevRate,
			Gap:            gap,
			GapPercent:     domain.GapPercent(gap, prevRate),
			Trend:          trendOf(gap),
		})
	}

	return e.store.UpsertComparisons(ctx, records)
}

// dailyTrend compares the date's transaction, amount, and revenue totals
// against the preceding calendar date and classifies the joint trend:
// increasing only when every tracked gap is positive, decreasing only when
// every one is negative, stable otherwise. The classification is stamped on
// all three comparison records.
func (e *Engine) dailyTrend(ctx context.Context, date time.Time) error {
	current, err := e.store.DailyBusinessByDate(ctx, date)
	if err != nil {
		return err
	}

	previous, err := e.store.DailyBusinessByDate(ctx, date.AddDate(0, 0, -1))
	if err != nil {
		return err
	}

	cur := totalsOf(current)
	prev := totalsOf(previous)

	metrics := []struct {
		metric   domain.MetricType
		cur, prv float64
	}{
		{domain.MetricTotalTrx, float64(cur.trx), float64(prev.trx)},
		{domain.MetricTotalAmount, float64(cur.amount), float64(prev.amount)},
		{domain.MetricTotalRevenue, float64(cur.revenue), float64(prev.revenue)},
	}

	allUp, allDown := true, true
	for _, m := range metrics {
		gap := m.cur - m.prv
		if gap <= 0 {
			allUp = false
		}
		if gap >= 0 {
			allDown = false
		}
	}

	trend := domain.TrendStable
	if allUp {
		trend = domain.TrendIncreasing
	} else if allDown {
		trend = domain.TrendDecreasing
	}

	records := make([]domain.ComparisonRecord, 0, len(metrics))
	for _, m := range metrics {
		gap := m.cur - m.prv
		records = append(records, domain.ComparisonRecord{
			Date:           date,
			MetricType:     m.metric,
			DimensionValue: "all",
			CurrentValue:   m.cur,
			PreviousValue:  m.prv,
			Gap:            gap,
			GapPercent:     domain.GapPercent(gap, m.prv),
			Trend:          trend,
		})
	}

	return e.store.UpsertComparisons(ctx, records)
}

type totals struct {
	trx, amount, revenue int64
}

func totalsOf(facts []domain.DailyBusinessFact) totals {
	var t totals
	for _, f := range facts {
		t.trx += f.SuccessTrx + f.FailedTrx
		t.amount += f.AmountFils
		t.revenue += f.RevenueFils
	}
	return t
}

func trendOf(gap float64) domain.Trend {
	switch {
	case gap > 0:
		return domain.TrendIncreasing
	case gap < 0:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// sortAggregates keeps upsert batches deterministic for stable logs and
// byte-identical reprocessing.
func sortAggregates(records []domain.AggregateRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].DimensionValue < records[j].DimensionValue
	})
}
