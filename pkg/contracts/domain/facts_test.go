package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		success  int64
		failed   int64
		expected float64
	}{
		{name: "typical split", success: 100, failed: 25, expected: 0.8},
		{name: "all success", success: 50, failed: 0, expected: 1},
		{name: "all failed", success: 0, failed: 50, expected: 0},
		{name: "zero denominator yields zero", success: 0, failed: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SuccessRate(tt.success, tt.failed), 1e-9)
		})
	}
}

func TestRevenueRate(t *testing.T) {
	tests := []struct {
		name     string
		revenue  int64
		amount   int64
		expected float64
	}{
		{name: "typical rate", revenue: 25, amount: 10_000, expected: 0.0025},
		{name: "zero amount yields zero", revenue: 500, amount: 0, expected: 0},
		{name: "zero revenue", revenue: 0, amount: 10_000, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, RevenueRate(tt.revenue, tt.amount), 1e-9)
		})
	}
}
