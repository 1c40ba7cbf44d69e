package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zalando/go-keyring"
)

const (
	service = "storeadmin-cli"
)

// CookieStore keeps store API cookies per server. It allows tests to swap
// the OS keyring.
type CookieStore interface {
	SaveCookies(serverURL string, cookies []*http.Cookie) error
	LoadCookies(serverURL string) ([]*http.Cookie, error)
	DeleteCookies(serverURL string) error
}

// Keyring stores cookies in the OS keychain/credential manager
type Keyring struct{}

// Default is the keyring-backed store used by the CLI
var Default CookieStore = Keyring{}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// getKeyringKey returns a unique key for storing cookies per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("cookies-%s", serverURL)
}

// SaveCookies persists the store API cookies. An empty set deletes the entry.
func (Keyring) SaveCookies(serverURL string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return Keyring{}.DeleteCookies(serverURL)
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	if err := keyring.Set(service, getKeyringKey(serverURL), string(data)); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

// LoadCookies returns the saved cookies, or none when the server has no entry
func (Keyring) LoadCookies(serverURL string) ([]*http.Cookie, error) {
	data, err := keyring.Get(service, getKeyringKey(serverURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return cookies, nil
}

// DeleteCookies removes the saved cookies for a server
func (Keyring) DeleteCookies(serverURL string) error {
	if err := keyring.Delete(service, getKeyringKey(serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}
