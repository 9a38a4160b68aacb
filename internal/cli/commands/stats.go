package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the admin stats command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}
	if err := ensureRoute(apiClient, adminStatsRoute); err != nil {
		return err
	}

	stats, err := fetch("platform statistics", apiClient.GetStats)
	if err != nil {
		return err
	}

	fmt.Printf("Statistics for %s (%s):\n\n", server.Alias, server.Origin)
	fmt.Printf("  Patients:        %d\n", stats.TotalUsers)
	fmt.Printf("  Predictions:     %d\n", stats.TotalPredictions)
	fmt.Printf("  Reports:         %d\n", stats.TotalReports)
	fmt.Printf("  High risk:       %d\n", stats.HighRiskCount)
	fmt.Printf("  Avg probability: %.1f%%\n", stats.AvgProbability*100)
	return nil
}
