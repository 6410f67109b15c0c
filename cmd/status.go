package cmd

import (
	"fmt"

	"github.com/aure/rumtrack/internal/db"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and the latest collected day",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Configuration")
		fmt.Println("─────────────────────────────")
		fmt.Printf("  Endpoint:  %s\n", cfg.APIEndpoint)
		fmt.Printf("  Domain:    %s\n", valueOr(cfg.Domain, "(not set)"))
		fmt.Printf("  Key:       %s\n", maskKey(cfg.DomainKey))
		fmt.Printf("  Database:  %s\n", cfg.DBPath)
		fmt.Printf("  Cache:     %s\n", valueOr(cfg.RedisAddr, "in-memory only"))

		if cfg.Domain == "" {
			return nil
		}

		database, err := db.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		latest, err := database.GetLatestRollup(cfg.Domain)
		if err != nil {
			return fmt.Errorf("getting latest rollup: %w", err)
		}

		fmt.Println()
		if latest == nil {
			fmt.Println("No data collected yet. Run 'rumtrack collect' first.")
			return nil
		}

		fmt.Printf("Latest Day (collected %s)\n", latest.CollectedAt.Format("2006-01-02 15:04"))
		fmt.Println("─────────────────────────────")
		fmt.Printf("  Day:         %s\n", latest.Day)
		fmt.Printf("  Bundles:     %d\n", latest.Bundles)
		fmt.Printf("  Page views:  %d\n", latest.PageViews)
		fmt.Printf("  Visits:      %d\n", latest.Visits)
		fmt.Printf("  Errors:      %d\n", latest.Errors)
		if latest.LCPP75 > 0 {
			fmt.Printf("  LCP p75:     %.0f ms\n", latest.LCPP75)
		}

		return nil
	},
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// maskKey keeps the last four characters of a domain key.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
