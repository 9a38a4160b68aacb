package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diatrack-dev/diatrack/internal/cli/client"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var username, fullName, email, contact, address string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new patient account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(username, fullName, email, contact, address)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&contact, "contact", "", "Contact number (optional)")
	cmd.Flags().StringVar(&address, "address", "", "Address (optional)")

	return cmd
}

func runRegister(username, fullName, email, contact, address string) error {
	if username == "" || fullName == "" || email == "" {
		return fmt.Errorf("--username, --full-name and --email are required")
	}

	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("register requires an interactive terminal for the password prompt")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	byteConfirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if string(bytePassword) != string(byteConfirm) {
		return fmt.Errorf("passwords do not match")
	}

	apiClient := client.New(server.Origin)
	err = apiClient.Register(client.RegisterRequest{
		Username: username,
		Password: string(bytePassword),
		FullName: fullName,
		Email:    email,
		Contact:  contact,
		Address:  address,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintln(os.Stdout, "✓ Account created! Run 'diatrack login' to authenticate.")
	return nil
}
