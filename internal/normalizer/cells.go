package normalizer

import (
	"math"
	"strconv"
	"strings"
)

// nullMarkers are cell values that mean "no data" in vendor spreadsheets.
// They coerce to zero for numeric fields rather than failing the row.
var nullMarkers = map[string]bool{
	"":     true,
	"-":    true,
	"n/a":  true,
	"na":   true,
	"null": true,
}

// isErrorMarker reports whether a cell holds a spreadsheet formula error
// such as #DIV/0!, #VALUE! or #REF!. These are treated as null, not as parse
// failures, because the source recomputes derived columns with brittle
// formulas.
func isErrorMarker(s string) bool {
	return strings.HasPrefix(s, "#")
}

// parseFloatCell coerces a raw cell into a float64. Null and error markers
// become 0 with ok=true; comma-grouped numbers ("1,234.5") are accepted.
// ok=false marks a genuinely unrecognized value, which flags the row for the
// defensive filter before upsert.
func parseFloatCell(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if nullMarkers[strings.ToLower(s)] || isErrorMarker(s) {
		return 0, true
	}

	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCountCell coerces a raw cell into an int64 count. Sources sometimes
// render counts as floats ("1234.0"), so this goes through float parsing and
// rounds.
func parseCountCell(raw string) (int64, bool) {
	v, ok := parseFloatCell(raw)
	if !ok {
		return 0, false
	}
	return int64(math.Round(v)), true
}

// parseHourCell accepts the hour-of-day forms seen across documents: "7",
// "07", "07:00", and "07:00 - 08:00" ranges (the range start wins).
func parseHourCell(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if idx := strings.IndexAny(s, ":-"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}

	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// scaled applies a unit-scale factor and converts to the canonical base unit.
func scaled(v float64, factor int64) int64 {
	return int64(math.Round(v * float64(factor)))
}
