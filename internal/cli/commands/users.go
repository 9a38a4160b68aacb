package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// NewUsersCmd creates the admin users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage patient accounts (admin only)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all patient accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList()
		},
	})

	var force bool
	deleteCmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a patient account and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersDelete(args[0], force)
		},
	}
	deleteCmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func runUsersList() error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}
	if err := ensureRoute(apiClient, adminUsersRoute); err != nil {
		return err
	}

	users, err := fetch("patient accounts", apiClient.ListUsers)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Println("No patient accounts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tFULL NAME\tROLE")
	fmt.Fprintln(w, "──\t────────\t─────────\t────")

	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Role)
	}

	w.Flush()
	return nil
}

func runUsersDelete(userID string, force bool) error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}
	if err := ensureRoute(apiClient, adminUsersRoute); err != nil {
		return err
	}

	if !force {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Permanently delete user %s and all their data", userID),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := apiClient.DeleteUser(userID, newIdempotencyKey()); err != nil {
		return err
	}

	fmt.Printf("✓ User %s deleted\n", userID)
	return nil
}
