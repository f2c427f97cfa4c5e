package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"console-http-go/internal/session"
)

func signedToken(t *testing.T, username string, exp time.Time) string {
	t.Helper()
	claims := session.TokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := session.DecodeClaims(signedToken(t, "admin", exp))

	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.ExpiresAt.Time.Equal(exp))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Second)))
}

func TestDecodeClaims_NotJWT(t *testing.T) {
	t.Parallel()

	_, err := session.DecodeClaims("opaque-token")

	require.ErrorIs(t, err, session.ErrNotJWT)
}

func TestTokenClaims_NoExpiry(t *testing.T) {
	t.Parallel()

	assert.False(t, (&session.TokenClaims{}).Expired(time.Now()))
}

func TestSetLogin_UsernameFromToken(t *testing.T) {
	t.Parallel()

	s := session.NewMemoryStore()
	require.NoError(t, s.SetLogin(signedToken(t, "operator", time.Now().Add(time.Hour)), ""))

	assert.Equal(t, "operator", s.Username())
}

func TestSetLogin_ExplicitUsernameWins(t *testing.T) {
	t.Parallel()

	s := session.NewMemoryStore()
	require.NoError(t, s.SetLogin(signedToken(t, "operator", time.Now().Add(time.Hour)), "admin"))

	assert.Equal(t, "admin", s.Username())
}
