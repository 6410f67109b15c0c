package cmd

import (
	"fmt"
	"strings"

	"github.com/aure/rumtrack/internal/db"
	"github.com/spf13/cobra"
)

var chartDays int
var chartType string

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Display ASCII traffic charts",
	Long: `Display ASCII charts of collected rollups.

Chart types:
  views     - Daily page views (default)
  visits    - Daily visits
  errors    - Daily errors
  weekly    - Weekly page views
  trend     - Page view sparkline

Examples:
  rumtrack chart
  rumtrack chart --type errors
  rumtrack chart --days 30 --type trend`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Domain == "" {
			return fmt.Errorf("domain not set (use --domain or RUMTRACK_DOMAIN)")
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		switch chartType {
		case "views", "visits", "errors":
			return printDailyChart(database, chartType, chartDays)
		case "weekly":
			return printWeeklyChart(database)
		case "trend":
			return printTrendChart(database, chartDays)
		default:
			return fmt.Errorf("unknown chart type: %s (valid: views, visits, errors, weekly, trend)", chartType)
		}
	},
}

func printDailyChart(database *db.DB, metric string, days int) error {
	daily, err := database.GetDailyRollups(cfg.Domain, days)
	if err != nil {
		return err
	}

	if len(daily) == 0 {
		fmt.Println("No data available.")
		return nil
	}

	labels := make([]string, len(daily))
	values := make([]int, len(daily))
	for i, d := range daily {
		labels[i] = d.Day
		switch metric {
		case "visits":
			values[i] = d.Visits
		case "errors":
			values[i] = d.Errors
		default:
			values[i] = d.PageViews
		}
	}

	fmt.Println()
	fmt.Printf("  Daily %s\n", metric)
	fmt.Println("  " + strings.Repeat("─", 50))
	printBars(labels, values, 30)
	fmt.Println()
	return nil
}

func printWeeklyChart(database *db.DB) error {
	weekly, err := database.GetWeeklyRollups(cfg.Domain, 8)
	if err != nil {
		return err
	}

	if len(weekly) == 0 {
		fmt.Println("No data available.")
		return nil
	}

	labels := make([]string, len(weekly))
	values := make([]int, len(weekly))
	for i, w := range weekly {
		labels[i], values[i] = w.Week, w.PageViews
	}

	fmt.Println()
	fmt.Println("  Weekly page views")
	fmt.Println("  " + strings.Repeat("─", 50))
	printBars(labels, values, 30)
	fmt.Println()
	return nil
}

func printTrendChart(database *db.DB, days int) error {
	daily, err := database.GetDailyRollups(cfg.Domain, days)
	if err != nil {
		return err
	}

	if len(daily) < 2 {
		fmt.Println("Need at least 2 days. Run 'rumtrack collect --days 7' first.")
		return nil
	}

	// oldest first
	for i, j := 0, len(daily)-1; i < j; i, j = i+1, j-1 {
		daily[i], daily[j] = daily[j], daily[i]
	}

	fmt.Printf("  %s to %s\n", daily[0].Day, daily[len(daily)-1].Day)
	printSparkline(daily)
	return nil
}

func init() {
	chartCmd.Flags().IntVarP(&chartDays, "days", "d", 7, "Number of days to display")
	chartCmd.Flags().StringVarP(&chartType, "type", "t", "views", "Chart type (views, visits, errors, weekly, trend)")
	rootCmd.AddCommand(chartCmd)
}
