package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloatCell(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
		ok       bool
	}{
		{name: "plain number", raw: "42.5", expected: 42.5, ok: true},
		{name: "comma grouped", raw: "1,234", expected: 1234, ok: true},
		{name: "comma grouped decimal", raw: "1,234,567.89", expected: 1234567.89, ok: true},
		{name: "surrounding whitespace", raw: "  7.5  ", expected: 7.5, ok: true},
		{name: "empty is null", raw: "", expected: 0, ok: true},
		{name: "dash is null", raw: "-", expected: 0, ok: true},
		{name: "n/a is null", raw: "N/A", expected: 0, ok: true},
		{name: "formula error is null", raw: "#DIV/0!", expected: 0, ok: true},
		{name: "ref error is null", raw: "#REF!", expected: 0, ok: true},
		{name: "garbage flags row", raw: "abc", expected: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := parseFloatCell(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}

func TestParseCountCell(t *testing.T) {
	v, ok := parseCountCell("1,234.0")
	assert.True(t, ok)
	assert.Equal(t, int64(1234), v)

	v, ok = parseCountCell("99.6")
	assert.True(t, ok)
	assert.Equal(t, int64(100), v)

	_, ok = parseCountCell("not a number")
	assert.False(t, ok)
}

func TestParseHourCell(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
		ok       bool
	}{
		{name: "bare", raw: "7", expected: 7, ok: true},
		{name: "zero padded", raw: "07", expected: 7, ok: true},
		{name: "with minutes", raw: "07:00", expected: 7, ok: true},
		{name: "range takes start", raw: "07:00 - 08:00", expected: 7, ok: true},
		{name: "out of range", raw: "24", ok: false},
		{name: "empty", raw: "", ok: false},
		{name: "garbage", raw: "noon", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := parseHourCell(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, h)
			}
		})
	}
}

func TestScaled(t *testing.T) {
	assert.Equal(t, int64(50_000_000), scaled(50, scaleMillion))
	assert.Equal(t, int64(1_500), scaled(1.5, scaleThousand))
	assert.Equal(t, int64(42), scaled(42.4, scaleNone))
}
