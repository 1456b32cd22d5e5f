package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestPeriod_IsValid(t *testing.T) {
	for _, p := range []Period{PeriodNone, PeriodMonthly, PeriodQuarterly, PeriodHalfYearly, PeriodYearly} {
		assert.True(t, p.IsValid(), string(p))
	}
	assert.False(t, Period("weekly").IsValid())
}

func TestPeriod_EndDate(t *testing.T) {
	start := date(2024, time.March, 15)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodMonthly, date(2024, time.April, 15)},
		{PeriodQuarterly, date(2024, time.June, 15)},
		{PeriodHalfYearly, date(2024, time.September, 15)},
		{PeriodYearly, date(2025, time.March, 15)},
	}

	for _, tc := range tests {
		t.Run(string(tc.period), func(t *testing.T) {
			end := tc.period.EndDate(start)
			require.NotNil(t, end)
			assert.Equal(t, tc.want, *end)
		})
	}
}

func TestPeriod_EndDate_None(t *testing.T) {
	assert.Nil(t, PeriodNone.EndDate(date(2024, time.March, 15)))
}

func TestPeriod_EndDate_ClampsToShorterMonth(t *testing.T) {
	// Jan 31 + 1 month must land on the last day of February, not March.
	end := PeriodMonthly.EndDate(date(2024, time.January, 31))
	require.NotNil(t, end)
	assert.Equal(t, date(2024, time.February, 29), *end) // 2024 is a leap year

	end = PeriodMonthly.EndDate(date(2023, time.January, 31))
	require.NotNil(t, end)
	assert.Equal(t, date(2023, time.February, 28), *end)
}

func TestPeriod_EndDate_ClampAcrossQuarter(t *testing.T) {
	// Nov 30 + 3 months: February has no day 30.
	end := PeriodQuarterly.EndDate(date(2023, time.November, 30))
	require.NotNil(t, end)
	assert.Equal(t, date(2024, time.February, 29), *end)
}

func TestPeriod_EndDate_YearlyLeapDay(t *testing.T) {
	end := PeriodYearly.EndDate(date(2024, time.February, 29))
	require.NotNil(t, end)
	assert.Equal(t, date(2025, time.February, 28), *end)
}

func TestEffectiveEnd_RevocationOverrides(t *testing.T) {
	start := date(2024, time.January, 1)
	revoked := date(2024, time.January, 10)

	end := EffectiveEnd(PeriodMonthly, start, &revoked)
	require.NotNil(t, end)
	assert.Equal(t, revoked, *end)
}

func TestEffectiveEnd_RevocationAfterEndIgnored(t *testing.T) {
	start := date(2024, time.January, 1)
	revoked := date(2024, time.March, 1)

	end := EffectiveEnd(PeriodMonthly, start, &revoked)
	require.NotNil(t, end)
	assert.Equal(t, date(2024, time.February, 1), *end)
}

func TestEffectiveEnd_None(t *testing.T) {
	revoked := date(2024, time.January, 10)
	assert.Nil(t, EffectiveEnd(PeriodNone, date(2024, time.January, 1), &revoked))
}
