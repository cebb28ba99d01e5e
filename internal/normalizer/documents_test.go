package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docByID(t *testing.T, id string) DocumentType {
	t.Helper()
	for _, d := range documentTypes {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("unknown document id %s", id)
	return DocumentType{}
}

func TestStrictFilename(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docDailyBusiness)
	assert.Equal(t, "FPS Daily Business Report - 20250609.xlsx", doc.StrictFilename(date))
}

func TestMatchFileStrict(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docCountryFlow)

	names := []string{
		"FPS Daily Business Report - 20250609.xlsx",
		"FPS Country Flow - 20250609.xlsx",
		"readme.txt",
	}

	name, ok := doc.MatchFile(names, date)
	require.True(t, ok)
	assert.Equal(t, "FPS Country Flow - 20250609.xlsx", name)
}

func TestMatchFileStrictIsCaseInsensitive(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docActiveUsers)

	name, ok := doc.MatchFile([]string{"fps active users - 20250609.XLSX"}, date)
	require.True(t, ok)
	assert.Equal(t, "fps active users - 20250609.XLSX", name)
}

func TestMatchFileTolerantFallback(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docChannelRevenue)

	// Vendor renamed the file but kept the date tag and a recognizable keyword.
	names := []string{"channel_revenue_report_20250609_final.xlsx"}

	name, ok := doc.MatchFile(names, date)
	require.True(t, ok)
	assert.Equal(t, "channel_revenue_report_20250609_final.xlsx", name)
}

func TestMatchFileRejectsWrongDate(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docChannelRevenue)

	_, ok := doc.MatchFile([]string{"channel_revenue_20250608.xlsx"}, date)
	assert.False(t, ok)
}

func TestMatchFileRejectsNonSpreadsheet(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docHourlyPerformance)

	_, ok := doc.MatchFile([]string{"performance_20250609.csv"}, date)
	assert.False(t, ok)
}

func TestMatchFileAbsentDocument(t *testing.T) {
	date := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	doc := docByID(t, docHourlyTransactions)

	_, ok := doc.MatchFile(nil, date)
	assert.False(t, ok)
}
