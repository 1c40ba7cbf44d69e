package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var alias, panel string

	cmd := &cobra.Command{
		Use:   "init <api-url>",
		Short: "Add a store API server to storeadmin.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], alias, panel)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Server alias (defaults to production, then server-N)")
	cmd.Flags().StringVar(&panel, "panel", "", "Admin panel URL opened by 'storeadmin dash'")

	return cmd
}

func runInit(apiURL, alias, panel string, opts ...Option) error {
	e := newEnv(opts...)

	if err := (config.Server{URL: apiURL}).Validate(); err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configPath := filepath.Join(currentDir, config.ConfigFileName)

	cfg := &config.Config{}
	isNewConfig := true
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		isNewConfig = false
		e.printf("Found existing %s\n", config.ConfigFileName)
	}

	server, added := cfg.AddServer(apiURL, alias, panel)
	if !added {
		e.printf("Server %s already exists in %s as %s\n", server.URL, config.ConfigFileName, server.Alias)
		return nil
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		e.printf("✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, server.URL, server.Alias)
	} else {
		e.printf("✓ Added server %s (%s) to ./%s\n", server.URL, server.Alias, config.ConfigFileName)
	}

	e.println("\nNext steps:")
	e.println("  1. Run 'storeadmin register' to create an admin account, if you have none")
	e.println("  2. Run 'storeadmin login' to authenticate")

	return nil
}
