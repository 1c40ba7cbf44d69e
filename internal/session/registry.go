package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/models"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// defaultTouchInterval throttles last-seen writes for active browser sessions
const defaultTouchInterval = time.Minute

// ErrUnknownSession is returned by a CookieVault that has no record for an ID
var ErrUnknownSession = errors.New("unknown browser session")

// CookieVault persists the store API cookies of each browser session
type CookieVault interface {
	Create(ctx context.Context, id string) error
	Load(ctx context.Context, id string) ([]*http.Cookie, error)
	Save(ctx context.Context, id string, cookies []*http.Cookie) error
	Clear(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
}

// ClientFactory builds a store API client with an empty cookie jar
type ClientFactory func() (*storeapi.Client, error)

// Entry is one browser session held in memory
type Entry struct {
	ID     string
	Store  *Store
	Client *storeapi.Client

	mu       sync.Mutex
	lastSeen time.Time
	touched  time.Time
}

// Registry maps browser-session IDs to in-memory entries. Materialising an
// entry is the admin panel's "app load": it starts the identity check.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry

	vault         CookieVault
	newClient     ClientFactory
	checkTimeout  time.Duration
	touchInterval time.Duration
	logger        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates an empty registry
func NewRegistry(vault CookieVault, newClient ClientFactory, checkTimeout time.Duration, logger zerolog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		entries:       make(map[string]*Entry),
		vault:         vault,
		newClient:     newClient,
		checkTimeout:  checkTimeout,
		touchInterval: defaultTouchInterval,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Get returns the entry for id, loading it from the vault or creating a new
// browser session when id is empty or unknown. The returned entry's ID is the
// one the caller must keep using. refresh reports that the caller should
// re-issue the browser's session cookie: the entry is new to memory or its
// last-seen time was just written to the vault.
func (r *Registry) Get(ctx context.Context, id string) (entry *Entry, refresh bool, err error) {
	if id != "" {
		if entry, ok := r.lookup(id); ok {
			return entry, r.touch(ctx, entry), nil
		}
	}

	// Vault I/O runs without r.mu; the map is checked again before inserting
	var cookies []*http.Cookie
	if id != "" {
		loaded, err := r.vault.Load(ctx, id)
		switch {
		case err == nil:
			cookies = loaded
			if err := r.vault.Touch(ctx, id); err != nil {
				r.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to touch browser session")
			}
		case errors.Is(err, ErrUnknownSession):
			id = ""
		default:
			return nil, false, fmt.Errorf("failed to load browser session: %w", err)
		}
	}

	if id == "" {
		id = models.NewID()
		if err := r.vault.Create(ctx, id); err != nil {
			return nil, false, fmt.Errorf("failed to create browser session: %w", err)
		}
		r.logger.Debug().Str("session_id", id).Msg("Created browser session")
	}

	client, err := r.newClient()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create store API client: %w", err)
	}
	if len(cookies) > 0 {
		client.SetCookies(cookies)
	}

	now := time.Now()
	entry = &Entry{
		ID:       id,
		Store:    NewStore(r.logger.With().Str("session_id", id).Logger()),
		Client:   client,
		lastSeen: now,
		touched:  now,
	}

	r.mu.Lock()
	if existing, ok := r.entries[id]; ok {
		// A concurrent request loaded the same session first
		r.mu.Unlock()
		return existing, r.touch(ctx, existing), nil
	}
	r.entries[id] = entry
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		checkCtx, cancel := context.WithTimeout(r.ctx, r.checkTimeout)
		defer cancel()
		entry.Store.Initialize(checkCtx, entry.Client)
	}()

	return entry, true, nil
}

func (r *Registry) lookup(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// SetTouchInterval changes how often an active entry's last-seen time is
// written to the vault
func (r *Registry) SetTouchInterval(d time.Duration) {
	r.mu.Lock()
	r.touchInterval = d
	r.mu.Unlock()
}

func (r *Registry) touch(ctx context.Context, entry *Entry) bool {
	r.mu.Lock()
	interval := r.touchInterval
	r.mu.Unlock()

	entry.mu.Lock()
	now := time.Now()
	entry.lastSeen = now
	due := now.Sub(entry.touched) >= interval
	if due {
		entry.touched = now
	}
	entry.mu.Unlock()

	if due {
		if err := r.vault.Touch(ctx, entry.ID); err != nil {
			r.logger.Warn().Err(err).Str("session_id", entry.ID).Msg("Failed to touch browser session")
		}
	}
	return due
}

// Persist saves the entry's current store API cookies
func (r *Registry) Persist(ctx context.Context, entry *Entry) error {
	if err := r.vault.Save(ctx, entry.ID, entry.Client.Cookies()); err != nil {
		return fmt.Errorf("failed to persist browser session: %w", err)
	}
	return nil
}

// Discard drops the entry's store API cookies, in memory and in the vault
func (r *Registry) Discard(ctx context.Context, entry *Entry) error {
	entry.Client.ClearCookies()
	if err := r.vault.Clear(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to clear browser session: %w", err)
	}
	return nil
}

// Forget removes an entry from memory. The next Get materialises it again.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Sweep forgets entries not seen for longer than idle and returns how many
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.entries {
		entry.mu.Lock()
		stale := entry.lastSeen.Before(cutoff)
		entry.mu.Unlock()
		if stale {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries in memory
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close cancels pending identity checks and waits for them to finish
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}
