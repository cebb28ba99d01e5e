package normalizer

import (
	"strings"
)

// table is one tabular region of a sheet: a resolved header-to-column map and
// the data rows that follow the header row.
type table struct {
	columns map[string]int
	rows    [][]string
}

// findTable locates the header row by keyword matching and maps column
// positions dynamically, the vendor moves and renames columns between
// document revisions. required lists the header keywords that must all be
// present on one row for it to count as the header.
func findTable(rows [][]string, required []string) (*table, bool) {
	for i, row := range rows {
		columns, ok := mapColumns(row, required)
		if !ok {
			continue
		}
		return &table{columns: columns, rows: rows[i+1:]}, true
	}
	return nil, false
}

// mapColumns maps each required keyword to the first cell containing it,
// case-insensitive. Returns ok=false unless every keyword resolves.
func mapColumns(row []string, required []string) (map[string]int, bool) {
	columns := make(map[string]int, len(required))
	for _, key := range required {
		found := false
		for j, cell := range row {
			if strings.Contains(strings.ToLower(cell), key) {
				columns[key] = j
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return columns, true
}

// cell returns the raw value of a mapped column in a data row, or "" when the
// row is too short.
func (t *table) cell(row []string, key string) string {
	idx, ok := t.columns[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// rowEmpty reports whether every cell of a row is blank.
func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// isSummaryRow reports whether a row is a vendor summary/total line rather
// than data. These are skipped, never ingested.
func isSummaryRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return strings.HasPrefix(first, "total") || strings.HasPrefix(first, "subtotal") ||
		strings.HasPrefix(first, "grand total")
}
