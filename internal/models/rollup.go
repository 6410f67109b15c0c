package models

import "time"

// Rollup is one UTC day of bundles for a domain.
type Rollup struct {
	Domain      string    `json:"domain,omitempty"`
	Day         string    `json:"day"`
	Bundles     int       `json:"bundles"`
	PageViews   int       `json:"page_views"`
	Visits      int       `json:"visits"`
	Errors      int       `json:"errors"`
	LCPP75      float64   `json:"lcp_p75,omitempty"`
	CollectedAt time.Time `json:"collected_at,omitempty"`
}

type WeeklyRollup struct {
	Domain    string `json:"domain"`
	Week      string `json:"week"`
	Bundles   int    `json:"bundles"`
	PageViews int    `json:"page_views"`
	Visits    int    `json:"visits"`
	Errors    int    `json:"errors"`
	Days      int    `json:"days"`
}

type Totals struct {
	Days      int     `json:"days"`
	Bundles   int     `json:"bundles"`
	PageViews int     `json:"page_views"`
	Visits    int     `json:"visits"`
	Errors    int     `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
	FirstDay  string  `json:"first_day,omitempty"`
	LastDay   string  `json:"last_day,omitempty"`
}
