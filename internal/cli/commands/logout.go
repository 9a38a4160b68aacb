package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diatrack-dev/diatrack/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func runLogout() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	// Best-effort server-side revocation; the local token is removed
	// regardless of the outcome.
	if apiClient, err := newAuthenticatedClient(server); err == nil {
		_ = apiClient.Logout()
	}

	if err := auth.DeleteToken(server.Origin); err != nil {
		return err
	}

	fmt.Printf("✓ Logged out of %s (%s)\n", server.Alias, server.Origin)
	return nil
}
