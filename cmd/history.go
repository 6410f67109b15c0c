package cmd

import (
	"fmt"

	"github.com/aure/rumtrack/internal/db"
	"github.com/spf13/cobra"
)

var historyDays int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show collected daily rollups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Domain == "" {
			return fmt.Errorf("domain not set (use --domain or RUMTRACK_DOMAIN)")
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		rollups, err := database.GetDailyRollups(cfg.Domain, historyDays)
		if err != nil {
			return fmt.Errorf("getting rollups: %w", err)
		}

		if len(rollups) == 0 {
			fmt.Println("No data available. Run 'rumtrack collect' first.")
			return nil
		}

		fmt.Printf("History for %s (last %d days)\n", cfg.Domain, historyDays)
		fmt.Println("─────────────────────────────────────────────────────────────────")
		fmt.Printf("%-12s %8s %10s %8s %8s %8s\n", "Day", "Bundles", "Views", "Visits", "Errors", "LCP75")
		fmt.Println("─────────────────────────────────────────────────────────────────")

		for _, r := range rollups {
			fmt.Printf("%-12s %8d %10d %8d %8d %8.0f\n",
				r.Day,
				r.Bundles,
				r.PageViews,
				r.Visits,
				r.Errors,
				r.LCPP75,
			)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyDays, "days", "d", 7, "Number of days to show")
	rootCmd.AddCommand(historyCmd)
}
