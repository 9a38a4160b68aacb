package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diatrack-dev/diatrack/internal/cli/auth"
	"github.com/diatrack-dev/diatrack/internal/cli/client"
	"github.com/diatrack-dev/diatrack/internal/cli/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a DiaTrack server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set DIATRACK_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set DIATRACK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(username, password string) error {
	// Check for environment variables (useful for scripting)
	if username == "" {
		username = os.Getenv("DIATRACK_USERNAME")
	}
	if password == "" {
		password = os.Getenv("DIATRACK_PASSWORD")
	}

	if username == "" {
		return fmt.Errorf("username is required (use --username flag or DIATRACK_USERNAME env var)")
	}

	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println()
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or DIATRACK_PASSWORD env var)")
		}
	}

	fmt.Printf("Logging in to %s (%s)...\n", server.Alias, server.Origin)

	apiClient := client.New(server.Origin)
	user, err := performLogin(apiClient, auth.Default, server.Origin, username, password)
	if err != nil {
		return err
	}

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s (%s)\n", user.FullName, user.Username)
	if user.Role == "admin" {
		fmt.Println("  Role: Admin")
	}

	return nil
}

// performLogin authenticates through the session store, which refreshes
// the user from the session endpoint, and persists the issued token.
func performLogin(apiClient *client.Client, tokens auth.TokenStore, origin, username, password string) (*client.User, error) {
	store := session.NewIdle(apiClient)

	if err := store.Login(context.Background(), username, password); err != nil {
		return nil, err
	}

	user := store.User()
	if user == nil {
		return nil, fmt.Errorf("login succeeded but session introspection returned no user")
	}

	if err := tokens.SaveToken(origin, apiClient.Token()); err != nil {
		return nil, fmt.Errorf("failed to save authentication token: %w", err)
	}

	return user, nil
}
