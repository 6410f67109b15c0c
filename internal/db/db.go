package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	path string
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	wrapper := &DB{DB: db, path: dbPath}
	if err := wrapper.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(dbPath, 0600); err != nil {
		db.Close()
		return nil, err
	}

	return wrapper, nil
}

func (db *DB) Migrate() error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
CREATE TABLE IF NOT EXISTS rum_rollups (
    domain TEXT NOT NULL,
    day TEXT NOT NULL,
    bundles INTEGER NOT NULL,
    page_views INTEGER NOT NULL,
    visits INTEGER NOT NULL,
    errors INTEGER NOT NULL,
    lcp_p75 REAL NOT NULL DEFAULT 0,
    collected_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (domain, day)
);

CREATE INDEX IF NOT EXISTS idx_rollups_day ON rum_rollups(day);

CREATE VIEW IF NOT EXISTS weekly_rollups AS
SELECT
    domain,
    strftime('%Y-W%W', day) as week,
    SUM(bundles) as bundles,
    SUM(page_views) as page_views,
    SUM(visits) as visits,
    SUM(errors) as errors,
    COUNT(*) as days
FROM rum_rollups
GROUP BY domain, strftime('%Y-W%W', day)
ORDER BY week DESC;
	`)
	if err != nil {
		return err
	}

	return tx.Commit()
}
