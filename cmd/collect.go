package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/aure/rumtrack/internal/db"
	"github.com/aure/rumtrack/internal/rum"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var collectDays int
var collectStart string
var collectEnd string

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch bundles and store daily rollups",
	Long: `Fetch bundles for a period and store one rollup per UTC day.

Without --start the period covers the last --days days up to --end (default now).
Days that were collected before are replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDomain(); err != nil {
			return err
		}

		end := time.Now().UTC()
		if collectEnd != "" {
			ts, err := rum.ParseTimestamp(collectEnd)
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
			end = ts
		}

		start := end.Truncate(24*time.Hour).AddDate(0, 0, -(collectDays - 1))
		if collectStart != "" {
			ts, err := rum.ParseTimestamp(collectStart)
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			start = ts
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		loader, cleanup, err := newLoader(ctx)
		if err != nil {
			return fmt.Errorf("creating loader: %w", err)
		}
		defer cleanup()

		results, err := loader.FetchPeriod(ctx, start, &end)
		if err != nil {
			return fmt.Errorf("fetching period: %w", err)
		}

		rollups := rum.Summarize(results)
		if err := database.UpsertRollups(cfg.Domain, rollups); err != nil {
			return fmt.Errorf("storing rollups: %w", err)
		}

		totals := rum.Total(rollups)
		logrus.WithFields(logrus.Fields{
			"domain":  cfg.Domain,
			"buckets": len(results),
			"days":    totals.Days,
		}).Debug("collected rollups")

		fmt.Printf("Collected %d day(s) for %s: %d bundles, %d page views, %d visits\n",
			totals.Days, cfg.Domain, totals.Bundles, totals.PageViews, totals.Visits)
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVarP(&collectDays, "days", "d", 7, "Number of days to collect when --start is not set")
	collectCmd.Flags().StringVar(&collectStart, "start", "", "Start of the period")
	collectCmd.Flags().StringVar(&collectEnd, "end", "", "End of the period (default now)")
	rootCmd.AddCommand(collectCmd)
}
