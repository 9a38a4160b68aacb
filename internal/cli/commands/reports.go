package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

// NewReportsCmd creates the reports command group
func NewReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage risk reports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsList()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a new report from your prediction history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsGenerate()
		},
	})

	var force bool
	deleteCmd := &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReportsDelete(args[0], force)
		},
	}
	deleteCmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func runReportsList() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	reports, err := fetch("reports", apiClient.ListReports)
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		fmt.Println("No reports found.")
		fmt.Println("\nGenerate one with: diatrack reports generate")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED AT")
	fmt.Fprintln(w, "──\t────\t──────\t──────────")

	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Status, r.CreatedAt)
	}

	w.Flush()
	return nil
}

func runReportsGenerate() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	report, err := apiClient.GenerateReport()
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	fmt.Printf("✓ Report %s queued (%s)\n", report.Title, report.ID)
	fmt.Println("\nCheck its status with: diatrack reports ls")
	return nil
}

func runReportsDelete(reportID string, force bool) error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	if !force {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete report %s", reportID),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	if err := apiClient.DeleteReport(reportID); err != nil {
		return err
	}

	fmt.Printf("✓ Report %s deleted\n", reportID)
	return nil
}

// newIdempotencyKey generates the key sent with destructive admin
// requests so a retried delete replays instead of failing.
func newIdempotencyKey() string {
	return ulid.Make().String()
}
