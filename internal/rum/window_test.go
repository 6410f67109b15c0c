package rum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodStamps_Granularity(t *testing.T) {
	base := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		span  time.Duration
		gran  Granularity
		count int
	}{
		{"same day", 2 * time.Hour, Daily, 1},
		{"three days", 3 * 24 * time.Hour, Daily, 4},
		{"one week", 7 * 24 * time.Hour, Daily, 8},
		{"thirty one days", 31 * 24 * time.Hour, Daily, 32},
		{"forty five days", 45 * 24 * time.Hour, Monthly, 2},
		{"a year", 365 * 24 * time.Hour, Monthly, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamps, g := PeriodStamps(base, base.Add(tt.span))
			assert.Equal(t, tt.gran, g)
			assert.Len(t, stamps, tt.count)
		})
	}
}

func TestPeriodStamps_AlignedToBucketStart(t *testing.T) {
	start := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	days, _ := PeriodStamps(start, start.Add(48*time.Hour))
	require.NotEmpty(t, days)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), days[0])

	months, _ := PeriodStamps(start, start.AddDate(0, 3, 0))
	require.NotEmpty(t, months)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), months[0])
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), months[len(months)-1])
}

func TestMonthlyStamps_DoesNotSkipShortMonths(t *testing.T) {
	stamps := MonthlyStamps(time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, stamps)
}

func TestHourlyStamps_CrossesDayBoundary(t *testing.T) {
	stamps := HourlyStamps(time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC), stamps[2])
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T07:45:00Z", time.Date(2024, 5, 1, 7, 45, 0, 0, time.UTC)},
		{"2024-05-01T07:45:00+02:00", time.Date(2024, 5, 1, 5, 45, 0, 0, time.UTC)},
		{"2024-05-01T07", time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-05", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}
