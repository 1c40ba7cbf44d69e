package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/cli/auth"
	"github.com/storeadmin-dev/storeadmin/internal/cli/client"
	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
	"github.com/storeadmin-dev/storeadmin/internal/cli/serverselect"
	"github.com/storeadmin-dev/storeadmin/internal/logger"
)

// env carries what a command needs besides its flags. Tests override
// the defaults through options.
type env struct {
	out     io.Writer
	cookies auth.CookieStore
	server  *config.Server
	confirm func(label string) (bool, error)
	logger  zerolog.Logger
}

// Option customizes a command run
type Option func(*env)

// WithOutput redirects command output
func WithOutput(w io.Writer) Option {
	return func(e *env) { e.out = w }
}

// WithCookieStore replaces the OS keyring
func WithCookieStore(store auth.CookieStore) Option {
	return func(e *env) { e.cookies = store }
}

// WithServer skips config lookup and uses server
func WithServer(server *config.Server) Option {
	return func(e *env) { e.server = server }
}

// WithConfirm replaces the interactive confirmation prompt
func WithConfirm(confirm func(label string) (bool, error)) Option {
	return func(e *env) { e.confirm = confirm }
}

func newEnv(opts ...Option) *env {
	e := &env{
		out:     os.Stdout,
		cookies: auth.Default,
		confirm: promptConfirm,
		logger:  zerolog.Nop(),
	}
	if level := os.Getenv("STOREADMIN_LOG_LEVEL"); level != "" {
		e.logger = logger.New(os.Stderr, "cli", level, "console")
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolveServer returns the server to talk to, loading storeadmin.yaml
// unless one was injected
func (e *env) resolveServer(serverAlias string) (*config.Server, error) {
	if e.server != nil {
		return e.server, nil
	}

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'storeadmin init <api-url>' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, err
	}
	e.server = server
	return server, nil
}

// open resolves the server and opens a store API session for it
func (e *env) open(serverAlias string) (*client.Session, error) {
	server, err := e.resolveServer(serverAlias)
	if err != nil {
		return nil, err
	}
	return client.Open(server, e.cookies, e.logger)
}

// authenticated opens a session and runs the route gate on it
func (e *env) authenticated(ctx context.Context, serverAlias string) (*client.Session, error) {
	sess, err := e.open(serverAlias)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Require(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

func (e *env) println(args ...any) {
	fmt.Fprintln(e.out, args...)
}

// commandContext is cancelled on Ctrl-C so pending store API calls stop
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// promptConfirm asks a yes/no question on the terminal
func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
