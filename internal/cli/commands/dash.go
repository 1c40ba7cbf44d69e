package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
)

// NewDashCmd creates the dash command
func NewDashCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the admin panel in browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL")

	return cmd
}

func runDash(serverAlias string, opts ...Option) error {
	e := newEnv(opts...)

	server, err := e.resolveServer(serverAlias)
	if err != nil {
		return err
	}
	if server.Panel == "" {
		return fmt.Errorf("no admin panel URL for %s, add 'panel:' to %s", server.Alias, config.ConfigFileName)
	}

	e.printf("Opening admin panel for %s...\n", server.Alias)
	e.printf("URL: %s\n", server.Panel)

	if err := openBrowser(server.Panel); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, server.Panel)
	}

	return nil
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
