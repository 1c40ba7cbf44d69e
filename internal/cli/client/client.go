package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/cli/auth"
	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
	"github.com/storeadmin-dev/storeadmin/internal/gate"
	"github.com/storeadmin-dev/storeadmin/internal/session"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// DefaultTimeout bounds every store API call made by the CLI
const DefaultTimeout = 30 * time.Second

// ErrNotAuthenticated is returned by protected commands when the identity
// check does not yield an admin
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'storeadmin login' first")

// Session is a store API client for one configured server. Its cookies live
// in the cookie store between invocations.
type Session struct {
	Server *config.Server
	API    *storeapi.Client
	Store  *session.Store

	cookies auth.CookieStore
}

// Open creates a session for server with any saved cookies loaded
func Open(server *config.Server, cookies auth.CookieStore, logger zerolog.Logger) (*Session, error) {
	api, err := storeapi.New(server.URL, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	saved, err := cookies.LoadCookies(server.URL)
	if err != nil {
		return nil, err
	}
	if len(saved) > 0 {
		api.SetCookies(saved)
	}

	return &Session{
		Server:  server,
		API:     api,
		Store:   session.NewStore(logger),
		cookies: cookies,
	}, nil
}

// Check runs the identity check and returns the resulting state
func (s *Session) Check(ctx context.Context) session.State {
	s.Store.Initialize(ctx, s.API)
	return s.Store.State()
}

// Require runs the identity check and returns the identity, or
// ErrNotAuthenticated when the route gate would redirect to login
func (s *Session) Require(ctx context.Context) (string, error) {
	state := s.Check(ctx)
	if gate.Decide(state) != gate.Allow {
		return "", ErrNotAuthenticated
	}
	return state.Identity, nil
}

// Save persists the cookies the store API set during this session
func (s *Session) Save() error {
	if err := s.cookies.SaveCookies(s.Server.URL, s.API.Cookies()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Forget drops the saved cookies
func (s *Session) Forget() error {
	s.API.ClearCookies()
	if err := s.cookies.DeleteCookies(s.Server.URL); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
