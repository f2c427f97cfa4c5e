package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a token cannot be decoded as a JWT.
var ErrNotJWT = errors.New("session: token is not a JWT")

// TokenClaims are the claims console back ends put in their access tokens.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// DecodeClaims reads the claims of token without verifying its signature.
// The back end is the only party that can verify it; the client uses the
// claims for display only.
func DecodeClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}
	return claims, nil
}

// Expired reports whether the token carries an expiry that is before now.
// Tokens without an expiry never expire on the client side.
func (c *TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}
