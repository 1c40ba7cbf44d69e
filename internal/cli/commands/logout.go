package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storeadmin-dev/storeadmin/internal/login"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var serverAlias string
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the admin session on the store API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			var opts []Option
			if yes {
				opts = append(opts, WithConfirm(func(string) (bool, error) { return true, nil }))
			}
			return runLogout(ctx, serverAlias, opts...)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runLogout(ctx context.Context, serverAlias string, opts ...Option) error {
	e := newEnv(opts...)

	sess, err := e.open(serverAlias)
	if err != nil {
		return err
	}

	ok, err := e.confirm(fmt.Sprintf("Log out of %s", sess.Server.Alias))
	if err != nil {
		return err
	}
	if !ok {
		e.println("Logout cancelled")
		return nil
	}

	result := login.NewService(nil, e.logger).Logout(ctx, sess.API, sess.Store)
	if !result.Success {
		return errors.New(result.Error)
	}

	if err := sess.Forget(); err != nil {
		return err
	}

	e.println("✓ Logged out")
	return nil
}
