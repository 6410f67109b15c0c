package rum

import (
	"fmt"
	"time"
)

// DateRange bounds bundles by TimeSlot. Both ends are inclusive and either
// may be nil.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

func filterByDateRange(bundles []Bundle, r DateRange) []Bundle {
	if r.IsZero() {
		return bundles
	}

	filtered := make([]Bundle, 0, len(bundles))
	for _, b := range bundles {
		if r.Contains(b.TimeSlot) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
	"2006-01",
}

// ParseTimestamp accepts RFC 3339 timestamps and their truncated forms down
// to YYYY-MM. Timestamps without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
