package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
	"github.com/storeadmin-dev/storeadmin/internal/cli/serverselect"
	"github.com/storeadmin-dev/storeadmin/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ storeadmin select-server                        # Interactive selection
  $ storeadmin select-server http://localhost:4000  # Select by URL
  $ storeadmin select-server production             # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(urlOrAlias)
		},
	}

	return cmd
}

func runSelectServer(urlOrAlias string, opts ...Option) error {
	e := newEnv(opts...)

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'storeadmin init <api-url>' to create a configuration file", err)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = cfg.GetServerByURLOrAlias(urlOrAlias)
	} else {
		server, err = serverselect.PromptServerSelection(cfg)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	e.printf("Selected server: %s (%s)\n", server.Alias, server.URL)
	return nil
}
