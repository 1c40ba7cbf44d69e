package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/storeadmin-dev/storeadmin/internal/cli/auth"
	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
)

func identityServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if c, err := r.Cookie("token"); err == nil && c.Value == "valid" {
			_, _ = w.Write([]byte(`{"success":true,"isAdmin":true,"data":{"_id":"A1"}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Not logged in"}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRequire(t *testing.T) {
	keyring.MockInit()
	ts := identityServer(t)
	server := &config.Server{Alias: "test", URL: ts.URL}

	s, err := Open(server, auth.Default, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Require(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, auth.Default.SaveCookies(ts.URL, []*http.Cookie{{Name: "token", Value: "valid"}}))

	s, err = Open(server, auth.Default, zerolog.Nop())
	require.NoError(t, err)
	identity, err := s.Require(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A1", identity)

	require.NoError(t, s.Forget())
	cookies, err := auth.Default.LoadCookies(ts.URL)
	require.NoError(t, err)
	assert.Empty(t, cookies)
}

func TestRequire_NetworkErrorFailsClosed(t *testing.T) {
	keyring.MockInit()
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	require.NoError(t, auth.Default.SaveCookies(url, []*http.Cookie{{Name: "token", Value: "valid"}}))

	s, err := Open(&config.Server{Alias: "down", URL: url}, auth.Default, zerolog.Nop())
	require.NoError(t, err)

	state := s.Check(context.Background())
	assert.False(t, state.Loading)
	assert.Empty(t, state.Identity)

	_, err = s.Require(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
