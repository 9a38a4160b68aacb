package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the health assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(strings.Join(args, " "))
		},
	}
}

func runAsk(question string) error {
	server, err := getSelectedServer()
	if err != nil {
		return err
	}

	apiClient, err := newAuthenticatedClient(server)
	if err != nil {
		return err
	}

	resp, err := apiClient.Ask(question)
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, source := range resp.Sources {
			fmt.Printf("  - %s\n", source)
		}
	}
	return nil
}
