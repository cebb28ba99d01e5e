package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"opspulse/internal/errors"
	"opspulse/pkg/contracts/domain"
)

// sheetRows loads one sheet or returns a PARSING error when it is missing.
// A missing expected sheet skips that document only; the rest of the date
// still processes.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("expected sheet %q is missing", sheet), err)
	}
	return rows, nil
}

// firstSheetRows is the fallback for single-sheet documents the vendor
// occasionally renames: when the named sheet is missing, the first sheet of
// the workbook is used instead.
func firstSheetRows(f *excelize.File, preferred string) ([][]string, error) {
	if rows, err := f.GetRows(preferred); err == nil {
		return rows, nil
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewParsingError("workbook has no sheets", nil)
	}
	return sheetRows(f, sheets[0])
}

func parseDailyBusiness(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error) {
	rows, err := firstSheetRows(f, "Business")
	if err != nil {
		return 0, err
	}

	tbl, ok := findTable(rows, []string{"category", "success", "failed", "amount", "revenue"})
	if !ok {
		return 0, errors.NewParsingError("could not find header row in daily business report", nil)
	}

	var facts []domain.DailyBusinessFact
	for _, row := range tbl.rows {
		if rowEmpty(row) || isSummaryRow(row) {
			continue
		}

		category := tbl.cell(row, "category")
		if category == "" {
			continue
		}

		success, okS := parseCountCell(tbl.cell(row, "success"))
		failed, okF := parseCountCell(tbl.cell(row, "failed"))
		amount, okA := parseFloatCell(tbl.cell(row, "amount"))
		revenue, okR := parseFloatCell(tbl.cell(row, "revenue"))
		if !okS || !okF || !okA || !okR {
			n.logDroppedRow(ctx, docDailyBusiness, row)
			continue
		}

		fact := domain.DailyBusinessFact{
			Date:        date,
			Category:    category,
			SuccessTrx:  success,
			FailedTrx:   failed,
			AmountFils:  scaled(amount, scaleFor(docDailyBusiness, colAmount)),
			RevenueFils: scaled(revenue, scaleFor(docDailyBusiness, colRevenue)),
		}
		// Source-computed rates are never trusted; recompute from base units.
		fact.SuccessRate = domain.SuccessRate(fact.SuccessTrx, fact.FailedTrx)
		fact.RevenueRate = domain.RevenueRate(fact.RevenueFils, fact.AmountFils)

		facts = append(facts, fact)
	}

	facts = filterValid(ctx, n, docDailyBusiness, facts)
	if err := n.writer.UpsertDailyBusiness(ctx, facts); err != nil {
		return 0, err
	}
	return len(facts), nil
}

func parseHourlyTransactions(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error) {
	rows, err := firstSheetRows(f, "Hourly")
	if err != nil {
		return 0, err
	}

	tbl, ok := findTable(rows, []string{"hour", "category", "success", "failed", "amount"})
	if !ok {
		return 0, errors.NewParsingError("could not find header row in hourly transactions", nil)
	}

	var facts []domain.HourlyBusinessFact
	for _, row := range tbl.rows {
		if rowEmpty(row) || isSummaryRow(row) {
			continue
		}

		category := tbl.cell(row, "category")
		if category == "" {
			continue
		}

		hour, okH := parseHourCell(tbl.cell(row, "hour"))
		success, okS := parseCountCell(tbl.cell(row, "success"))
		failed, okF := parseCountCell(tbl.cell(row, "failed"))
		amount, okA := parseFloatCell(tbl.cell(row, "amount"))
		if !okH || !okS || !okF || !okA {
			n.logDroppedRow(ctx, docHourlyTransactions, row)
			continue
		}

		facts = append(facts, domain.HourlyBusinessFact{
			Date:       date,
			Hour:       hour,
			Category:   category,
			SuccessTrx: success,
			FailedTrx:  failed,
			AmountFils: scaled(amount, scaleFor(docHourlyTransactions, colAmount)),
		})
	}

	facts = filterValid(ctx, n, docHourlyTransactions, facts)
	if err := n.writer.UpsertHourlyBusiness(ctx, facts); err != nil {
		return 0, err
	}
	return len(facts), nil
}

// countryFlowSections routes stacked logical tables inside the single country
// flow sheet. A section-start row is detected by keyword on its first cell;
// subsequent rows belong to that section until the next header appears.
var countryFlowSections = map[string]domain.FlowDirection{
	"inbound":  domain.FlowInbound,
	"outbound": domain.FlowOutbound,
}

func parseCountryFlow(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error) {
	rows, err := firstSheetRows(f, "Country Flow")
	if err != nil {
		return 0, err
	}

	var facts []domain.CountryFlowFact
	var direction domain.FlowDirection
	var tbl *table

	for i := 0; i < len(rows); i++ {
		row := rows[i]
		if rowEmpty(row) || isSummaryRow(row) {
			continue
		}

		if dir, ok := sectionStart(row); ok {
			direction = dir
			// next non-empty row is the section's header
			tbl = nil
			continue
		}

		if direction == "" {
			continue // preamble before the first section
		}

		if tbl == nil {
			sectionTbl, ok := findTable([][]string{row}, []string{"country", "transactions", "amount"})
			if !ok {
				n.logger.WarnContext(ctx, "country flow section has no header row",
					slog.String("direction", string(direction)),
					slog.Int("row", i))
				direction = ""
				continue
			}
			tbl = sectionTbl
			continue
		}

		country := tbl.cell(row, "country")
		if country == "" {
			continue
		}

		count, okC := parseCountCell(tbl.cell(row, "transactions"))
		amount, okA := parseFloatCell(tbl.cell(row, "amount"))
		if !okC || !okA {
			n.logDroppedRow(ctx, docCountryFlow, row)
			continue
		}

		facts = append(facts, domain.CountryFlowFact{
			Date:       date,
			Country:    country,
			Direction:  direction,
			TrxCount:   count,
			AmountFils: scaled(amount, scaleFor(docCountryFlow, colAmount)),
		})
	}

	if len(facts) == 0 {
		return 0, errors.NewParsingError("country flow sheet contained no recognizable sections", nil)
	}

	facts = filterValid(ctx, n, docCountryFlow, facts)
	if err := n.writer.UpsertCountryFlow(ctx, facts); err != nil {
		return 0, err
	}
	return len(facts), nil
}

// sectionStart matches a section-header row of the country flow sheet by its
// first cell.
func sectionStart(row []string) (domain.FlowDirection, bool) {
	first := strings.ToLower(strings.TrimSpace(row[0]))
	for keyword, dir := range countryFlowSections {
		if strings.HasPrefix(first, keyword) {
			return dir, true
		}
	}
	return "", false
}

func parseChannelRevenue(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error) {
	rows, err := firstSheetRows(f, "Channels")
	if err != nil {
		return 0, err
	}

	tbl, ok := findTable(rows, []string{"channel", "transactions", "amount", "revenue"})
	if !ok {
		return 0, errors.NewParsingError("could not find header row in channel revenue", nil)
	}

	var facts []domain.ChannelRevenueFact
	for _, row := range tbl.rows {
		if rowEmpty(row) || isSummaryRow(row) {
			continue
		}

		channel := tbl.cell(row, "channel")
		if channel == "" {
			continue
		}

		count, okC := parseCountCell(tbl.cell(row, "transactions"))
		amount, okA := parseFloatCell(tbl.cell(row, "amount"))
		revenue, okR := parseFloatCell(tbl.cell(row, "revenue"))
		if !okC || !okA || !okR {
			n.logDroppedRow(ctx, docChannelRevenue, row)
			continue
		}

		fact := domain.ChannelRevenueFact{
			Date:        date,
			Channel:     channel,
			TrxCount:    count,
			AmountFils:  scaled(amount, scaleFor(docChannelRevenue, colAmount)),
			RevenueFils: scaled(revenue, scaleFor(docChannelRevenue, colRevenue)),
		}
		fact.RevenueRate = domain.RevenueRate(fact.RevenueFils, fact.AmountFils)

		facts = append(facts, fact)
	}

	facts = filterValid(ctx, n, docChannelRevenue, facts)
	if err := n.writer.UpsertChannelRevenue(ctx, facts); err != nil {
		return 0, err
	}
	return len(facts), nil
}

func parseActiveUsers(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error) {
	rows, err := firstSheetRows(f, "Users")
	if err != nil {
		return 0, err
	}

	tbl, ok := findTable(rows, []string{"segment", "active", "new"})
	if !ok {
		return 0, errors.NewParsingError("could not find header row in active users", nil)
	}

	var facts []domain.ActiveUsersFact
	for _, row := range tbl.rows {
		if rowEmpty(row) || isSummaryRow(row) {
			continue
		}

		segment := tbl.cell(row, "segment")
		if segment == "" {
			continue
		}

		active, okA := parseCountCell(tbl.cell(row, "active"))
		newUsers, okN := parseCountCell(tbl.cell(row, "new"))
		if !okA || !okN {
			n.logDroppedRow(ctx, docActiveUsers, row)
			continue
		}

		facts = append(facts, domain.ActiveUsersFact{
			Date:        date,
			Segment:     segment,
			ActiveUsers: active,
			NewUsers:    newUsers,
		})
	}

	facts = filterValid(ctx, n, docActiveUsers, facts)
	if err := n.writer.UpsertActiveUsers(ctx, facts); err != nil {
		return 0, err
	}
	return len(facts), nil
}

// parseHourlyPerformance merges the document's one-sheet-per-metric layout
// (Success, Failed, Amount, each keyed by hour of day) into single fact rows.
func parseHourlyPerformance(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error) {
	success, err := hourMetric(f, "Success")
	if err != nil {
		return 0, err
	}
	failed, err := hourMetric(f, "Failed")
	if err != nil {
		return 0, err
	}
	amount, err := hourMetric(f, "Amount")
	if err != nil {
		return 0, err
	}

	hours := make(map[int]struct{})
	for h := range success {
		hours[h] = struct{}{}
	}
	for h := range failed {
		hours[h] = struct{}{}
	}
	for h := range amount {
		hours[h] = struct{}{}
	}

	sorted := make([]int, 0, len(hours))
	for h := range hours {
		sorted = append(sorted, h)
	}
	sort.Ints(sorted)

	facts := make([]domain.HourlyPerformanceFact, 0, len(sorted))
	for _, h := range sorted {
		fact := domain.HourlyPerformanceFact{
			Date:       date,
			Hour:       h,
			SuccessTrx: int64(success[h]),
			FailedTrx:  int64(failed[h]),
			AmountFils: scaled(amount[h], scaleFor(docHourlyPerformance, colAmount)),
		}
		fact.SuccessRate = domain.SuccessRate(fact.SuccessTrx, fact.FailedTrx)
		facts = append(facts, fact)
	}

	facts = filterValid(ctx, n, docHourlyPerformance, facts)
	if err := n.writer.UpsertHourlyPerformance(ctx, facts); err != nil {
		return 0, err
	}
	return len(facts), nil
}

// hourMetric reads one single-metric sheet into an hour -> value map.
func hourMetric(f *excelize.File, sheet string) (map[int]float64, error) {
	rows, err := sheetRows(f, sheet)
	if err != nil {
		return nil, err
	}

	tbl, ok := findTable(rows, []string{"hour", "value"})
	if !ok {
		return nil, errors.NewParsingError(fmt.Sprintf("could not find header row in sheet %q", sheet), nil)
	}

	values := make(map[int]float64)
	for _, row := range tbl.rows {
		if rowEmpty(row) || isSummaryRow(row) {
			continue
		}
		hour, okH := parseHourCell(tbl.cell(row, "hour"))
		value, okV := parseFloatCell(tbl.cell(row, "value"))
		if !okH || !okV {
			continue
		}
		values[hour] = value
	}
	return values, nil
}
