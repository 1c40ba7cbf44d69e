// Package session holds the admin panel's notion of "who is logged in".
//
// A Store starts out loading. Initialize runs the identity check once and
// resolves it; SetIdentity records explicit login and logout. Until the store
// has resolved, callers must not treat the identity as either present or
// absent.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// State is a point-in-time read of a Store
type State struct {
	Identity string `json:"identity"`
	Loading  bool   `json:"loading"`
}

// Authenticated reports whether the state is resolved with an identity
func (s State) Authenticated() bool {
	return !s.Loading && s.Identity != ""
}

// Reader is the read side of a Store, consumed by the route gate and pages
type Reader interface {
	State() State
	Ready() <-chan struct{}
}

// Writer is the write side of a Store, used by login and logout
type Writer interface {
	SetIdentity(identity string)
}

// Checker performs the identity check against the store API
type Checker interface {
	CheckAdmin(ctx context.Context) (string, error)
}

// Store is the session state for one admin browser
type Store struct {
	mu       sync.RWMutex
	identity string
	loading  bool

	initOnce  sync.Once
	readyOnce sync.Once
	ready     chan struct{}

	logger zerolog.Logger
}

// NewStore creates a store in the loading state
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		loading: true,
		ready:   make(chan struct{}),
		logger:  logger,
	}
}

// State returns the current identity and loading flag
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Identity: s.identity, Loading: s.loading}
}

// Ready is closed once loading has flipped to false
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Initialize runs the identity check. Any failure clears the identity. Loading
// flips to false exactly once, after the outcome has been recorded. Only the
// first call does anything.
func (s *Store) Initialize(ctx context.Context, checker Checker) {
	s.initOnce.Do(func() {
		identity, err := checker.CheckAdmin(ctx)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Identity check failed, no admin session")
			identity = ""
		}

		s.mu.Lock()
		// An explicit login or logout that landed while the check was in
		// flight wins over the check's answer.
		if s.loading {
			s.identity = identity
			s.loading = false
		}
		s.mu.Unlock()

		s.markReady()

		if identity != "" {
			s.logger.Debug().Str("admin_id", identity).Msg("Identity check resolved")
		}
	})
}

// SetIdentity records an explicit login (non-empty) or logout (empty)
func (s *Store) SetIdentity(identity string) {
	s.mu.Lock()
	s.identity = identity
	s.loading = false
	s.mu.Unlock()

	s.markReady()
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() {
		close(s.ready)
	})
}

// Wait blocks until the store has resolved or ctx is done, then returns the
// state at that moment
func Wait(ctx context.Context, r Reader) State {
	select {
	case <-r.Ready():
	case <-ctx.Done():
	}
	return r.State()
}
