package cmd

import (
	"fmt"
	"strings"

	"github.com/aure/rumtrack/internal/db"
	"github.com/aure/rumtrack/internal/models"
	"github.com/aure/rumtrack/internal/rum"
	"github.com/spf13/cobra"
)

var statsChart bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show traffic statistics from collected rollups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Domain == "" {
			return fmt.Errorf("domain not set (use --domain or RUMTRACK_DOMAIN)")
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		all, err := database.GetRollups(cfg.Domain, "")
		if err != nil {
			return fmt.Errorf("getting rollups: %w", err)
		}

		if len(all) == 0 {
			fmt.Println("No data available. Run 'rumtrack collect' first.")
			return nil
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("         TRAFFIC STATISTICS")
		fmt.Println("═══════════════════════════════════════")

		latest := all[len(all)-1]
		fmt.Printf("\n📊 Latest Day (%s)\n", latest.Day)
		fmt.Println("─────────────────────")
		fmt.Printf("  Page views: %d\n", latest.PageViews)
		fmt.Printf("  Visits:     %d\n", latest.Visits)
		fmt.Printf("  Errors:     %d\n", latest.Errors)
		printMiniBar(latest.Errors, latest.PageViews, 30)

		fmt.Println("\n📅 Daily Page Views")
		fmt.Println("─────────────────────")
		daily, err := database.GetDailyRollups(cfg.Domain, 7)
		if err != nil {
			return fmt.Errorf("getting daily rollups: %w", err)
		}
		if statsChart {
			labels, values := make([]string, len(daily)), make([]int, len(daily))
			for i, d := range daily {
				labels[i], values[i] = d.Day, d.PageViews
			}
			printBars(labels, values, 20)
		} else {
			fmt.Printf("%-12s %10s %10s %10s\n", "Day", "Views", "Visits", "LCP p75")
			for _, d := range daily {
				fmt.Printf("%-12s %10d %10d %10.0f\n", d.Day, d.PageViews, d.Visits, d.LCPP75)
			}
		}

		fmt.Println("\n📆 Weekly Page Views")
		fmt.Println("─────────────────────")
		weekly, err := database.GetWeeklyRollups(cfg.Domain, 4)
		if err != nil {
			return fmt.Errorf("getting weekly rollups: %w", err)
		}
		if statsChart {
			labels, values := make([]string, len(weekly)), make([]int, len(weekly))
			for i, w := range weekly {
				labels[i], values[i] = w.Week, w.PageViews
			}
			printBars(labels, values, 20)
		} else {
			fmt.Printf("%-12s %10s %10s %6s\n", "Week", "Views", "Visits", "Days")
			for _, w := range weekly {
				fmt.Printf("%-12s %10d %10d %6d\n", w.Week, w.PageViews, w.Visits, w.Days)
			}
		}

		totals := rum.Total(all)
		fmt.Println("\n📈 Overall")
		fmt.Println("─────────────────────")
		fmt.Printf("  Days collected:  %d (%s to %s)\n", totals.Days, totals.FirstDay, totals.LastDay)
		fmt.Printf("  Page views:      %d\n", totals.PageViews)
		fmt.Printf("  Avg daily:       %.1f views/day\n", float64(totals.PageViews)/float64(totals.Days))
		fmt.Printf("  Error rate:      %.2f%%\n", totals.ErrorRate*100)

		if statsChart && len(all) > 1 {
			fmt.Println("\n📉 Page View Trend")
			fmt.Println("─────────────────────")
			printSparkline(all)
		}

		return nil
	},
}

func printMiniBar(part, total, width int) {
	var pct float64
	if total > 0 {
		pct = float64(part) / float64(total)
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Printf("  [%s] %.1f%% errors\n", bar, pct*100)
}

func printBars(labels []string, values []int, width int) {
	if len(values) == 0 {
		fmt.Println("  No data yet")
		return
	}

	maxVal := 1
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	for i, v := range values {
		barLen := int(float64(v) / float64(maxVal) * float64(width))
		bar := strings.Repeat("█", barLen) + strings.Repeat("░", width-barLen)
		fmt.Printf("  %-10s │%s│ %d\n", labels[i], bar, v)
	}
}

// sparkline samples rollups down to at most width page view glyphs.
func sparkline(rollups []models.Rollup, width int) string {
	if len(rollups) == 0 {
		return ""
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	maxVal := 1
	for _, r := range rollups {
		if r.PageViews > maxVal {
			maxVal = r.PageViews
		}
	}

	n := len(rollups)
	if n > width {
		n = width
	}

	var sb strings.Builder
	for i := 0; i < n; i++ {
		idx := i * len(rollups) / n
		charIdx := rollups[idx].PageViews * (len(chars) - 1) / maxVal
		sb.WriteRune(chars[charIdx])
	}
	return sb.String()
}

func printSparkline(rollups []models.Rollup) {
	fmt.Printf("  Views: %s\n", sparkline(rollups, 40))
}

func init() {
	statsCmd.Flags().BoolVarP(&statsChart, "chart", "c", false, "Show ASCII charts inline")
	rootCmd.AddCommand(statsCmd)
}
