package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aure/rumtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "nested", "rum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestNew_CreatesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rum.db")
	database, err := New(path)
	require.NoError(t, err)
	defer database.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestUpsertRollups_ReplacesExistingDays(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.UpsertRollups("www.example.com", []models.Rollup{
		{Day: "2024-05-01", Bundles: 1, PageViews: 100, Visits: 100},
		{Day: "2024-05-02", Bundles: 2, PageViews: 200, Visits: 100, Errors: 10},
	}))
	require.NoError(t, database.UpsertRollups("www.example.com", []models.Rollup{
		{Day: "2024-05-02", Bundles: 3, PageViews: 300, Visits: 200, Errors: 20, LCPP75: 1800},
	}))
	require.NoError(t, database.UpsertRollups("www.example.org", []models.Rollup{
		{Day: "2024-05-02", Bundles: 9, PageViews: 900},
	}))

	rollups, err := database.GetRollups("www.example.com", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, rollups, 2)
	assert.Equal(t, "2024-05-01", rollups[0].Day)
	assert.Equal(t, 300, rollups[1].PageViews)
	assert.Equal(t, 1800.0, rollups[1].LCPP75)
	assert.False(t, rollups[1].CollectedAt.IsZero())
}

func TestGetLatestRollup(t *testing.T) {
	database := newTestDB(t)

	latest, err := database.GetLatestRollup("www.example.com")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, database.UpsertRollups("www.example.com", []models.Rollup{
		{Day: "2024-05-03", PageViews: 3},
		{Day: "2024-05-01", PageViews: 1},
	}))

	latest, err = database.GetLatestRollup("www.example.com")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-05-03", latest.Day)
}

func TestGetDailyAndWeeklyRollups(t *testing.T) {
	database := newTestDB(t)

	// 2024-05-06 is a Monday, so the first two days fall in an earlier week.
	require.NoError(t, database.UpsertRollups("www.example.com", []models.Rollup{
		{Day: "2024-05-04", Bundles: 1, PageViews: 10, Visits: 5, Errors: 1},
		{Day: "2024-05-05", Bundles: 1, PageViews: 20, Visits: 5},
		{Day: "2024-05-06", Bundles: 1, PageViews: 30, Visits: 5},
		{Day: "2024-05-07", Bundles: 1, PageViews: 40, Visits: 5, Errors: 2},
	}))

	daily, err := database.GetDailyRollups("www.example.com", 3)
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, "2024-05-07", daily[0].Day)

	weekly, err := database.GetWeeklyRollups("www.example.com", 4)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, 70, weekly[0].PageViews)
	assert.Equal(t, 2, weekly[0].Days)
	assert.Equal(t, 2, weekly[0].Errors)
	assert.Equal(t, 30, weekly[1].PageViews)
}
