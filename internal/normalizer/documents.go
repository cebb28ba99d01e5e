package normalizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// vendorTag prefixes every strictly-named document the reporting system drops.
const vendorTag = "FPS"

// Document IDs. These key the unit-scale table and appear in logs.
const (
	docDailyBusiness      = "daily_business"
	docHourlyTransactions = "hourly_transactions"
	docCountryFlow        = "country_flow"
	docChannelRevenue     = "channel_revenue"
	docActiveUsers        = "active_users"
	docHourlyPerformance  = "hourly_performance"
)

// Logical column names used by the unit-scale table.
const (
	colAmount  = "amount"
	colRevenue = "revenue"
)

// parseFunc converts one matched document into persisted fact rows and
// returns how many rows were written.
type parseFunc func(ctx context.Context, n *Normalizer, f *excelize.File, date time.Time) (int, error)

// DocumentType is one entry of the document dispatch table: a strict filename
// pattern, a tolerant fallback keyword, and the parser routed to on match.
type DocumentType struct {
	ID      string
	Label   string
	Keyword string
	parse   parseFunc
}

// documentTypes is the fixed dispatch table. Order is the processing order
// for a date; every entry is independent of the others.
var documentTypes = []DocumentType{
	{ID: docDailyBusiness, Label: "Daily Business Report", Keyword: "business", parse: parseDailyBusiness},
	{ID: docHourlyTransactions, Label: "Hourly Transactions", Keyword: "hourly", parse: parseHourlyTransactions},
	{ID: docCountryFlow, Label: "Country Flow", Keyword: "country", parse: parseCountryFlow},
	{ID: docChannelRevenue, Label: "Channel Revenue", Keyword: "channel", parse: parseChannelRevenue},
	{ID: docActiveUsers, Label: "Active Users", Keyword: "active user", parse: parseActiveUsers},
	{ID: docHourlyPerformance, Label: "Hourly Performance", Keyword: "performance", parse: parseHourlyPerformance},
}

// StrictFilename returns the vendor naming convention for this document on
// the given date: "<vendor> <Label> - <YYYYMMDD>.xlsx".
func (d DocumentType) StrictFilename(date time.Time) string {
	return fmt.Sprintf("%s %s - %s.xlsx", vendorTag, d.Label, date.Format("20060102"))
}

// MatchFile selects the file for this document among the extracted names.
// The strict pattern is tried first; the tolerant fallback requires the
// 8-digit date substring plus the document keyword, case-insensitive. A
// document with no match is simply absent for that date.
func (d DocumentType) MatchFile(names []string, date time.Time) (string, bool) {
	strict := strings.ToLower(d.StrictFilename(date))
	for _, name := range names {
		if strings.ToLower(name) == strict {
			return name, true
		}
	}

	dateTag := date.Format("20060102")
	keyword := strings.ToLower(d.Keyword)
	for _, name := range names {
		lower := strings.ToLower(name)
		if !isSpreadsheet(lower) {
			continue
		}
		if strings.Contains(lower, dateTag) && strings.Contains(lower, keyword) {
			return name, true
		}
	}

	return "", false
}

func isSpreadsheet(lowerName string) bool {
	return strings.HasSuffix(lowerName, ".xlsx") || strings.HasSuffix(lowerName, ".xls")
}
