package rum

import (
	"math"
	"sort"
	"time"

	"github.com/aure/rumtrack/internal/models"
)

const errorCheckpoint = "error"

// Summarize rolls bundles up by the UTC day of their time slot. Page views,
// visits and errors are weighted. Rollups are sorted by day, oldest first.
func Summarize(results []Result) []models.Rollup {
	byDay := make(map[string]*models.Rollup)
	lcp := make(map[string][]float64)

	for _, res := range results {
		for i := range res.Bundles {
			b := &res.Bundles[i]
			day := b.TimeSlot.UTC().Format(time.DateOnly)

			r, ok := byDay[day]
			if !ok {
				r = &models.Rollup{Day: day}
				byDay[day] = r
			}

			r.Bundles++
			r.PageViews += b.Weight
			if b.Visit {
				r.Visits += b.Weight
			}
			if b.HasCheckpoint(errorCheckpoint) {
				r.Errors += b.Weight
			}
			if b.CWVLCP != nil {
				lcp[day] = append(lcp[day], *b.CWVLCP)
			}
		}
	}

	rollups := make([]models.Rollup, 0, len(byDay))
	for day, r := range byDay {
		r.LCPP75 = percentile(lcp[day], 0.75)
		rollups = append(rollups, *r)
	}
	sort.Slice(rollups, func(i, j int) bool { return rollups[i].Day < rollups[j].Day })
	return rollups
}

// Total folds daily rollups into a single summary.
func Total(rollups []models.Rollup) models.Totals {
	var t models.Totals
	for _, r := range rollups {
		t.Days++
		t.Bundles += r.Bundles
		t.PageViews += r.PageViews
		t.Visits += r.Visits
		t.Errors += r.Errors
		if t.FirstDay == "" || r.Day < t.FirstDay {
			t.FirstDay = r.Day
		}
		if r.Day > t.LastDay {
			t.LastDay = r.Day
		}
	}
	if t.PageViews > 0 {
		t.ErrorRate = float64(t.Errors) / float64(t.PageViews)
	}
	return t
}

// percentile uses the nearest-rank method; it returns 0 for no samples.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}
