package db

import (
	"database/sql"
	"errors"

	"github.com/aure/rumtrack/internal/models"
)

// UpsertRollups stores rollups for domain, replacing days that were already
// collected.
func (db *DB) UpsertRollups(domain string, rollups []models.Rollup) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
INSERT INTO rum_rollups (domain, day, bundles, page_views, visits, errors, lcp_p75, collected_at)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(domain, day) DO UPDATE SET
    bundles = excluded.bundles,
    page_views = excluded.page_views,
    visits = excluded.visits,
    errors = excluded.errors,
    lcp_p75 = excluded.lcp_p75,
    collected_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rollups {
		if _, err := stmt.Exec(domain, r.Day, r.Bundles, r.PageViews, r.Visits, r.Errors, r.LCPP75); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const rollupColumns = `domain, day, bundles, page_views, visits, errors, lcp_p75, collected_at`

func scanRollup(row interface{ Scan(...any) error }) (models.Rollup, error) {
	var r models.Rollup
	var collectedAt sql.NullTime
	err := row.Scan(&r.Domain, &r.Day, &r.Bundles, &r.PageViews, &r.Visits, &r.Errors, &r.LCPP75, &collectedAt)
	if collectedAt.Valid {
		r.CollectedAt = collectedAt.Time
	}
	return r, err
}

func (db *DB) GetLatestRollup(domain string) (*models.Rollup, error) {
	row := db.QueryRow(`SELECT `+rollupColumns+` FROM rum_rollups WHERE domain = ? ORDER BY day DESC LIMIT 1`, domain)

	r, err := scanRollup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetRollups returns rollups from sinceDay (YYYY-MM-DD) onwards, oldest first.
func (db *DB) GetRollups(domain, sinceDay string) ([]models.Rollup, error) {
	rows, err := db.Query(`SELECT `+rollupColumns+` FROM rum_rollups WHERE domain = ? AND day >= ? ORDER BY day ASC`, domain, sinceDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rollups []models.Rollup
	for rows.Next() {
		r, err := scanRollup(rows)
		if err != nil {
			return nil, err
		}
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}

// GetDailyRollups returns the most recent days, newest first.
func (db *DB) GetDailyRollups(domain string, days int) ([]models.Rollup, error) {
	rows, err := db.Query(`SELECT `+rollupColumns+` FROM rum_rollups WHERE domain = ? ORDER BY day DESC LIMIT ?`, domain, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.Rollup
	for rows.Next() {
		r, err := scanRollup(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetWeeklyRollups returns the most recent weeks, newest first.
func (db *DB) GetWeeklyRollups(domain string, weeks int) ([]models.WeeklyRollup, error) {
	rows, err := db.Query(`SELECT domain, week, bundles, page_views, visits, errors, days FROM weekly_rollups WHERE domain = ? LIMIT ?`, domain, weeks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.WeeklyRollup
	for rows.Next() {
		var w models.WeeklyRollup
		if err := rows.Scan(&w.Domain, &w.Week, &w.Bundles, &w.PageViews, &w.Visits, &w.Errors, &w.Days); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}
