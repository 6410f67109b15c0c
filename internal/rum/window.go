package rum

import "time"

type Granularity int

const (
	Daily Granularity = iota
	Monthly
)

func (g Granularity) String() string {
	if g == Monthly {
		return "month"
	}
	return "day"
}

// Spans up to a month are fetched day by day, longer ones month by month.
const maxDailySpan = 31 * 24 * time.Hour

// HourlyStamps walks back from end one hour at a time.
func HourlyStamps(end time.Time, n int) []time.Time {
	end = end.UTC()
	stamps := make([]time.Time, n)
	for i := range stamps {
		stamps[i] = end.Add(-time.Duration(i) * time.Hour)
	}
	return stamps
}

// DailyStamps walks back from end one day at a time.
func DailyStamps(end time.Time, n int) []time.Time {
	end = end.UTC()
	stamps := make([]time.Time, n)
	for i := range stamps {
		stamps[i] = end.AddDate(0, 0, -i)
	}
	return stamps
}

// MonthlyStamps walks back from the first of end's month one calendar month
// at a time. Starting from the first keeps short months from being skipped.
func MonthlyStamps(end time.Time, n int) []time.Time {
	first := startOfMonth(end)
	stamps := make([]time.Time, n)
	for i := range stamps {
		stamps[i] = first.AddDate(0, -i, 0)
	}
	return stamps
}

// PeriodStamps covers [start, end] with one stamp per calendar day or
// month, both ends included.
func PeriodStamps(start, end time.Time) ([]time.Time, Granularity) {
	start, end = start.UTC(), end.UTC()

	var stamps []time.Time
	if end.Sub(start) <= maxDailySpan {
		for d := startOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
			stamps = append(stamps, d)
		}
		return stamps, Daily
	}

	for m := startOfMonth(start); !m.After(end); m = m.AddDate(0, 1, 0) {
		stamps = append(stamps, m)
	}
	return stamps, Monthly
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
