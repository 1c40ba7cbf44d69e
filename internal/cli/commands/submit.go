package commands

import (
	"context"
	"errors"

	"github.com/storeadmin-dev/storeadmin/internal/login"
)

func runSubmit(ctx context.Context, mode login.Mode, form login.Form, serverAlias string, opts ...Option) error {
	e := newEnv(opts...)

	if err := fillCredentials(&form); err != nil {
		return err
	}
	form.Mode = mode

	sess, err := e.open(serverAlias)
	if err != nil {
		return err
	}

	if mode == login.ModeLogin {
		e.printf("Logging in to %s (%s)...\n", sess.Server.Alias, sess.Server.URL)
	} else {
		e.printf("Registering on %s (%s)...\n", sess.Server.Alias, sess.Server.URL)
	}

	result := login.NewService(nil, e.logger).Submit(ctx, sess.API, sess.Store, form)
	if !result.Success {
		return errors.New(result.Error)
	}

	if mode == login.ModeRegister {
		e.printf("✓ %s\n", result.Message)
		e.println("  Run 'storeadmin login' to sign in")
		return nil
	}

	if err := sess.Save(); err != nil {
		return err
	}

	e.println("✓ Login successful!")
	e.printf("  Admin: %s\n", sess.Store.State().Identity)
	return nil
}
