package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	signed, err := tokens.Issue("01SESSION")
	require.NoError(t, err)

	id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "01SESSION", id)
}

func TestTokens_Rejects(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokens("other-secret", time.Hour)
	require.NoError(t, err)
	expired, err := NewTokens("secret", -time.Minute)
	require.NoError(t, err)

	foreign, err := other.Issue("01SESSION")
	require.NoError(t, err)
	stale, err := expired.Issue("01SESSION")
	require.NoError(t, err)
	empty, err := tokens.Issue("")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"no session":   empty,
		"garbage":      "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokens_ZeroTTLNeverExpires(t *testing.T) {
	tokens, err := NewTokens("secret", 0)
	require.NoError(t, err)

	signed, err := tokens.Issue("01SESSION")
	require.NoError(t, err)

	claims := &SessionClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(signed, claims)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	require.Error(t, err)
}
