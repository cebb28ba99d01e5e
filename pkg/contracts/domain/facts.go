package domain

import (
	"time"
)

// DateFormat is the canonical date layout used in keys and logs.
const DateFormat = "2006-01-02"

// FlowDirection distinguishes inbound from outbound country flows.
type FlowDirection string

const (
	FlowInbound  FlowDirection = "inbound"
	FlowOutbound FlowDirection = "outbound"
)

// DailyBusinessFact represents one business category's transaction totals for
// one day. This is the primary fact type; the processed-date set is derived
// from its distinct dates.
//
// Amounts are stored in fils (the smallest currency unit) regardless of how
// the source spreadsheet scaled them. SuccessRate and RevenueRate are always
// recomputed from the base-unit fields at normalization time.
type DailyBusinessFact struct {
	Date        time.Time `json:"date" gorm:"type:date;uniqueIndex:ux_daily_business;not null" validate:"required"`
	Category    string    `json:"category" gorm:"uniqueIndex:ux_daily_business;size:64;not null" validate:"required"`
	SuccessTrx  int64     `json:"success_trx" gorm:"not null" validate:"min=0"`
	FailedTrx   int64     `json:"failed_trx" gorm:"not null" validate:"min=0"`
	AmountFils  int64     `json:"amount_fils" gorm:"not null" validate:"min=0"`
	RevenueFils int64     `json:"revenue_fils" gorm:"not null" validate:"min=0"`
	SuccessRate float64   `json:"success_rate" validate:"min=0,max=1"`
	RevenueRate float64   `json:"revenue_rate" validate:"min=0"`
}

// HourlyBusinessFact represents one business category's transaction totals for
// one hour of one day.
type HourlyBusinessFact struct {
	Date       time.Time `json:"date" gorm:"type:date;uniqueIndex:ux_hourly_business;not null" validate:"required"`
	Hour       int       `json:"hour" gorm:"uniqueIndex:ux_hourly_business;not null" validate:"min=0,max=23"`
	Category   string    `json:"category" gorm:"uniqueIndex:ux_hourly_business;size:64;not null" validate:"required"`
	SuccessTrx int64     `json:"success_trx" gorm:"not null" validate:"min=0"`
	FailedTrx  int64     `json:"failed_trx" gorm:"not null" validate:"min=0"`
	AmountFils int64     `json:"amount_fils" gorm:"not null" validate:"min=0"`
}

// CountryFlowFact represents cross-border transaction volume for one country
// corridor and direction on one day.
type CountryFlowFact struct {
	Date       time.Time     `json:"date" gorm:"type:date;uniqueIndex:ux_country_flow;not null" validate:"required"`
	Country    string        `json:"country" gorm:"uniqueIndex:ux_country_flow;size:64;not null" validate:"required"`
	Direction  FlowDirection `json:"direction" gorm:"uniqueIndex:ux_country_flow;size:16;not null" validate:"required,oneof=inbound outbound"`
	TrxCount   int64         `json:"trx_count" gorm:"not null" validate:"min=0"`
	AmountFils int64         `json:"amount_fils" gorm:"not null" validate:"min=0"`
}

// ChannelRevenueFact represents volume and revenue of one acquiring channel on
// one day.
type ChannelRevenueFact struct {
	Date        time.Time `json:"date" gorm:"type:date;uniqueIndex:ux_channel_revenue;not null" validate:"required"`
	Channel     string    `json:"channel" gorm:"uniqueIndex:ux_channel_revenue;size:64;not null" validate:"required"`
	TrxCount    int64     `json:"trx_count" gorm:"not null" validate:"min=0"`
	AmountFils  int64     `json:"amount_fils" gorm:"not null" validate:"min=0"`
	RevenueFils int64     `json:"revenue_fils" gorm:"not null" validate:"min=0"`
	RevenueRate float64   `json:"revenue_rate" validate:"min=0"`
}

// ActiveUsersFact represents user activity counts for one segment on one day.
type ActiveUsersFact struct {
	Date        time.Time `json:"date" gorm:"type:date;uniqueIndex:ux_active_users;not null" validate:"required"`
	Segment     string    `json:"segment" gorm:"uniqueIndex:ux_active_users;size:64;not null" validate:"required"`
	ActiveUsers int64     `json:"active_users" gorm:"not null" validate:"min=0"`
	NewUsers    int64     `json:"new_users" gorm:"not null" validate:"min=0"`
}

// HourlyPerformanceFact represents switch-wide performance for one hour of one
// day, merged from the per-metric sheets of the hourly performance document.
type HourlyPerformanceFact struct {
	Date        time.Time `json:"date" gorm:"type:date;uniqueIndex:ux_hourly_performance;not null" validate:"required"`
	Hour        int       `json:"hour" gorm:"uniqueIndex:ux_hourly_performance;not null" validate:"min=0,max=23"`
	SuccessTrx  int64     `json:"success_trx" gorm:"not null" validate:"min=0"`
	FailedTrx   int64     `json:"failed_trx" gorm:"not null" validate:"min=0"`
	AmountFils  int64     `json:"amount_fils" gorm:"not null" validate:"min=0"`
	SuccessRate float64   `json:"success_rate" validate:"min=0,max=1"`
}

// SuccessRate computes successes/(successes+failures), returning 0 when no
// transactions were recorded. All derived rate fields in this package go
// through this helper so the zero-denominator guard is uniform.
func SuccessRate(success, failed int64) float64 {
	total := success + failed
	if total == 0 {
		return 0
	}
	return float64(success) / float64(total)
}

// RevenueRate computes revenue per amount unit, returning 0 when the amount
// is zero.
func RevenueRate(revenueFils, amountFils int64) float64 {
	if amountFils == 0 {
		return 0
	}
	return float64(revenueFils) / float64(amountFils)
}
