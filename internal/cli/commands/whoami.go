package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/cli/client"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show which admin the saved session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			return runWhoami(ctx, serverAlias)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL")

	return cmd
}

func runWhoami(ctx context.Context, serverAlias string, opts ...Option) error {
	e := newEnv(opts...)

	sess, err := e.open(serverAlias)
	if err != nil {
		return err
	}

	state := sess.Check(ctx)
	if !state.Authenticated() {
		e.printf("Not logged in to %s (%s)\n", sess.Server.Alias, sess.Server.URL)
		return client.ErrNotAuthenticated
	}

	e.printf("%s on %s (%s)\n", state.Identity, sess.Server.Alias, sess.Server.URL)
	return nil
}
