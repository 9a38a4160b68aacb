package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami()
		},
	}
}

func runWhoami() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	resp, err := apiClient.GetSession()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}

	if !resp.Authenticated || resp.User == nil {
		fmt.Printf("Not logged in to %s (%s). Run 'diatrack login'.\n", server.Alias, server.Origin)
		return nil
	}

	fmt.Printf("Logged in to %s (%s)\n", server.Alias, server.Origin)
	fmt.Printf("  User: %s (%s)\n", resp.User.FullName, resp.User.Username)
	fmt.Printf("  Role: %s\n", resp.User.Role)
	return nil
}
