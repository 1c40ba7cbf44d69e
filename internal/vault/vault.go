// Package vault persists the store API cookies of admin browser sessions,
// sealed with NaCl secretbox before they reach the database.
package vault

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/nacl/secretbox"
	"gorm.io/gorm"

	"github.com/storeadmin-dev/storeadmin/internal/models"
	"github.com/storeadmin-dev/storeadmin/internal/session"
)

const nonceSize = 24

var _ session.CookieVault = (*Vault)(nil)

// storedCookie is the sealed representation of a cookie. The jar only hands
// back name and value, so nothing else is kept.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Vault stores browser sessions in the database
type Vault struct {
	db     *gorm.DB
	key    [32]byte
	logger zerolog.Logger
}

// New creates a vault whose sealing key is derived from secret
func New(db *gorm.DB, secret string, logger zerolog.Logger) *Vault {
	return &Vault{
		db:     db,
		key:    sha256.Sum256([]byte("storeadmin/vault:" + secret)),
		logger: logger,
	}
}

// Create records a new, empty browser session
func (v *Vault) Create(ctx context.Context, id string) error {
	record := &models.BrowserSession{
		BaseModel:  models.BaseModel{ID: id},
		LastSeenAt: time.Now().UTC(),
	}
	if err := v.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create browser session: %w", err)
	}
	return nil
}

// Load returns the cookies saved for id
func (v *Vault) Load(ctx context.Context, id string) ([]*http.Cookie, error) {
	var record models.BrowserSession
	if err := models.FindByID(v.db.WithContext(ctx), id, &record); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrUnknownSession
		}
		return nil, fmt.Errorf("failed to find browser session: %w", err)
	}

	if len(record.Cookies) == 0 {
		return nil, nil
	}

	cookies, err := v.open(record.Cookies)
	if err != nil {
		// A rotated secret makes old records unreadable. Treat them as logged out.
		v.logger.Warn().Err(err).Str("session_id", id).Msg("Discarding unreadable browser session cookies")
		return nil, nil
	}
	return cookies, nil
}

// Save replaces the cookies saved for id, creating the record if needed
func (v *Vault) Save(ctx context.Context, id string, cookies []*http.Cookie) error {
	var sealed []byte
	if len(cookies) > 0 {
		var err error
		sealed, err = v.seal(cookies)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	result := v.db.WithContext(ctx).
		Model(&models.BrowserSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"cookies": sealed, "last_seen_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to save browser session: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Pruned by the worker while the browser was still open
	record := &models.BrowserSession{
		BaseModel:  models.BaseModel{ID: id},
		Cookies:    sealed,
		LastSeenAt: now,
	}
	if err := v.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save browser session: %w", err)
	}
	return nil
}

// Clear forgets the cookies saved for id but keeps the browser session
func (v *Vault) Clear(ctx context.Context, id string) error {
	return v.Save(ctx, id, nil)
}

// Touch marks the browser session as seen now
func (v *Vault) Touch(ctx context.Context, id string) error {
	err := v.db.WithContext(ctx).
		Model(&models.BrowserSession{}).
		Where("id = ?", id).
		Update("last_seen_at", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to touch browser session: %w", err)
	}
	return nil
}

// PruneIdle deletes browser sessions not seen since before cutoff
func (v *Vault) PruneIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result := v.db.WithContext(ctx).
		Where("last_seen_at < ?", cutoff.UTC()).
		Delete(&models.BrowserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune browser sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (v *Vault) seal(cookies []*http.Cookie) ([]byte, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}

	plaintext, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cookies: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &v.key), nil
}

func (v *Vault) open(sealed []byte) ([]*http.Cookie, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("sealed cookies too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return nil, fmt.Errorf("failed to open sealed cookies")
	}

	var stored []storedCookie
	if err := json.Unmarshal(plaintext, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}
