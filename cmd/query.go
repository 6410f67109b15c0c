package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aure/rumtrack/internal/db"
	"github.com/aure/rumtrack/internal/models"
	"github.com/aure/rumtrack/internal/rum"
	"github.com/spf13/cobra"
)

var queryStart string
var queryEnd string
var querySummary bool
var queryDays int
var queryWeeks int

var queryCmd = &cobra.Command{
	Use:   "query [type]",
	Short: "Query bundles and rollups in JSON format (for agents/scripts)",
	Long: `Query bundles from the API, or stored rollups, in structured JSON format.

Types:
  week       - 168 hourly buckets ending at --end (default now)
  31days     - 31 daily buckets ending at --end
  12months   - 13 monthly buckets ending at --end
  period     - Daily or monthly buckets covering --start to --end
  daily      - Stored daily rollups (use --days flag)
  weekly     - Stored weekly rollups (use --weeks flag)

Examples:
  rumtrack query week --summary
  rumtrack query period --start 2024-05-01 --end 2024-05-07
  rumtrack query daily --days 14`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result any
		var err error

		switch queryType := args[0]; queryType {
		case "week", "31days", "12months", "period":
			result, err = queryBundles(cmd.Context(), queryType)
		case "daily", "weekly":
			result, err = queryRollups(queryType)
		default:
			return fmt.Errorf("unknown query type: %s (valid: week, 31days, 12months, period, daily, weekly)", queryType)
		}
		if err != nil {
			return err
		}

		return printJSON(result)
	},
}

// BundleSummary is the --summary form of a bundle query.
type BundleSummary struct {
	Domain  string          `json:"domain"`
	Buckets int             `json:"buckets"`
	Totals  models.Totals   `json:"totals"`
	Days    []models.Rollup `json:"days"`
}

func queryBundles(parent context.Context, queryType string) (any, error) {
	if err := requireDomain(); err != nil {
		return nil, err
	}

	var end *time.Time
	if queryEnd != "" {
		ts, err := rum.ParseTimestamp(queryEnd)
		if err != nil {
			return nil, fmt.Errorf("parsing --end: %w", err)
		}
		end = &ts
	}

	ctx, cancel := context.WithTimeout(parent, 10*time.Minute)
	defer cancel()

	loader, cleanup, err := newLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating loader: %w", err)
	}
	defer cleanup()

	var results []rum.Result
	switch queryType {
	case "week":
		results, err = loader.FetchLastWeek(ctx, end)
	case "31days":
		results, err = loader.FetchPrevious31Days(ctx, end)
	case "12months":
		results, err = loader.FetchPrevious12Months(ctx, end)
	case "period":
		if queryStart == "" {
			return nil, fmt.Errorf("period query requires --start")
		}
		start, perr := rum.ParseTimestamp(queryStart)
		if perr != nil {
			return nil, fmt.Errorf("parsing --start: %w", perr)
		}
		results, err = loader.FetchPeriod(ctx, start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", queryType, err)
	}

	if !querySummary {
		return results, nil
	}
	return summarizeResults(cfg.Domain, results), nil
}

func summarizeResults(domain string, results []rum.Result) BundleSummary {
	days := rum.Summarize(results)
	return BundleSummary{
		Domain:  domain,
		Buckets: len(results),
		Totals:  rum.Total(days),
		Days:    days,
	}
}

func queryRollups(queryType string) (any, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("domain not set (use --domain or RUMTRACK_DOMAIN)")
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if queryType == "weekly" {
		return database.GetWeeklyRollups(cfg.Domain, queryWeeks)
	}
	return database.GetDailyRollups(cfg.Domain, queryDays)
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	fmt.Println(string(output))
	return nil
}

func init() {
	queryCmd.Flags().StringVar(&queryStart, "start", "", "Start of a period query")
	queryCmd.Flags().StringVar(&queryEnd, "end", "", "End of the window (default now)")
	queryCmd.Flags().BoolVar(&querySummary, "summary", false, "Print daily rollups and totals instead of raw bundles")
	queryCmd.Flags().IntVarP(&queryDays, "days", "d", 7, "Number of days for daily queries")
	queryCmd.Flags().IntVarP(&queryWeeks, "weeks", "w", 4, "Number of weeks for weekly queries")
	rootCmd.AddCommand(queryCmd)
}
