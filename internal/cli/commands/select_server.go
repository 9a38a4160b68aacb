package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diatrack-dev/diatrack/internal/cli/config"
	"github.com/diatrack-dev/diatrack/internal/cli/serverselect"
	"github.com/diatrack-dev/diatrack/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select-server",
		Short: "Choose which configured server to use",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelectServer()
		},
	}
}

func runSelectServer() error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'diatrack init' to create a configuration file", err)
	}

	server, err := serverselect.PromptServerSelection(cfg)
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedServer(server.Origin); err != nil {
		return fmt.Errorf("failed to save server selection: %w", err)
	}

	fmt.Printf("✓ Now using %s (%s)\n", server.Alias, server.Origin)
	return nil
}
