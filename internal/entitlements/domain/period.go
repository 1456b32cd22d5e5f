// Package domain contains the subscription entitlement model: products,
// transactions, periods, and the deduplication state that guards them.
package domain

import "time"

// Period represents how long a subscription purchase entitles the user.
type Period string

const (
	PeriodNone       Period = "none"
	PeriodMonthly    Period = "monthly"
	PeriodQuarterly  Period = "quarterly"
	PeriodHalfYearly Period = "half_yearly"
	PeriodYearly     Period = "yearly"
)

// IsValid checks if the period is a known value.
func (p Period) IsValid() bool {
	switch p {
	case PeriodNone, PeriodMonthly, PeriodQuarterly, PeriodHalfYearly, PeriodYearly:
		return true
	default:
		return false
	}
}

// Months returns the length of the period in calendar months.
func (p Period) Months() int {
	switch p {
	case PeriodMonthly:
		return 1
	case PeriodQuarterly:
		return 3
	case PeriodHalfYearly:
		return 6
	case PeriodYearly:
		return 12
	default:
		return 0
	}
}

// EndDate computes when an entitlement starting at start expires.
// Returns nil for PeriodNone: no entitlement, no expiry to compute.
func (p Period) EndDate(start time.Time) *time.Time {
	months := p.Months()
	if months == 0 {
		return nil
	}
	end := addMonths(start, months)
	return &end
}

// EffectiveEnd computes the entitlement end, honoring an early revocation.
// A revocation date before the computed end terminates the entitlement early.
func EffectiveEnd(p Period, start time.Time, revokedAt *time.Time) *time.Time {
	end := p.EndDate(start)
	if end == nil {
		return nil
	}
	if revokedAt != nil && revokedAt.Before(*end) {
		r := *revokedAt
		return &r
	}
	return end
}

// addMonths performs calendar-aware month addition. When the start day does
// not exist in the target month the result clamps to that month's last day,
// so Jan 31 + 1 month is the end of February rather than March 2.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	// First of the target month, then clamp the day.
	first := time.Date(year, month+time.Month(months), 1, hour, minute, second, t.Nanosecond(), t.Location())
	if last := lastDayOfMonth(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, second, t.Nanosecond(), t.Location())
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
