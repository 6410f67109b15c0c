package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/aure/rumtrack/internal/rum"
	"github.com/spf13/cobra"
)

var fetchStart string
var fetchEnd string

var fetchCmd = &cobra.Command{
	Use:   "fetch [hour|day|month] [timestamp]",
	Short: "Fetch the bundles of a single UTC hour, day or month",
	Long: `Fetch the bundles of a single UTC time bucket and print them as JSON.

The timestamp accepts RFC 3339 or a shorter UTC form (2024-05-01T07, 2024-05-01, 2024-05).
--start and --end drop bundles whose time slot falls outside the range.

Examples:
  rumtrack fetch hour 2024-05-01T07
  rumtrack fetch day 2024-05-01
  rumtrack fetch month 2024-05 --start 2024-05-10`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireDomain(); err != nil {
			return err
		}

		ts, err := rum.ParseTimestamp(args[1])
		if err != nil {
			return err
		}
		rng, err := parseDateRange(fetchStart, fetchEnd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		loader, cleanup, err := newLoader(ctx)
		if err != nil {
			return fmt.Errorf("creating loader: %w", err)
		}
		defer cleanup()

		var result rum.Result
		switch args[0] {
		case "hour":
			result, err = loader.FetchUTCHour(ctx, ts, rng)
		case "day":
			result, err = loader.FetchUTCDay(ctx, ts, rng)
		case "month":
			result, err = loader.FetchUTCMonth(ctx, ts, rng)
		default:
			return fmt.Errorf("unknown bucket: %s (valid: hour, day, month)", args[0])
		}
		if err != nil {
			return fmt.Errorf("fetching %s: %w", args[0], err)
		}

		return printJSON(result)
	},
}

func parseDateRange(start, end string) (rum.DateRange, error) {
	var rng rum.DateRange
	if start != "" {
		ts, err := rum.ParseTimestamp(start)
		if err != nil {
			return rng, fmt.Errorf("parsing --start: %w", err)
		}
		rng.Start = &ts
	}
	if end != "" {
		ts, err := rum.ParseTimestamp(end)
		if err != nil {
			return rng, fmt.Errorf("parsing --end: %w", err)
		}
		rng.End = &ts
	}
	return rng, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "Drop bundles before this time")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "Drop bundles after this time")
	rootCmd.AddCommand(fetchCmd)
}
