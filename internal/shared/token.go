package shared

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the registered claims read from an access token.
type TokenClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseTokenClaims reads the registered claims of a JWT access token without verifying its signature.
//
// The client never holds the signing key; the backend remains the authority on validity.
// Claims are only used to learn the expiry so stale sessions are treated as absent.
func ParseTokenClaims(raw string) (*TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: access token is not a JWT: %v", ErrInvalidInput, err)
	}

	tc := &TokenClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		tc.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		tc.ExpiresAt = claims.ExpiresAt.Time
	}
	return tc, nil
}
