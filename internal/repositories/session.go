package repositories

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/snackx/internal/shared"
)

// SessionRepository persists the bearer credentials issued at login.
//
// It implements [oauth2.TokenSource] so HTTP services can authorize requests without knowing about storage.
// Token returns [shared.ErrNotAuthenticated] when no access token is stored and [shared.ErrTokenExpired]
// when the stored token's expiry has passed.
type SessionRepository struct {
	state *StateRepository
	now   func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] backed by state.
func NewSessionRepository(state *StateRepository) *SessionRepository {
	return &SessionRepository{state: state, now: time.Now}
}

// Token returns the stored session token.
func (r *SessionRepository) Token() (*oauth2.Token, error) {
	tok, err := r.Load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if !tok.Expiry.IsZero() && !tok.Expiry.After(r.now()) {
		return nil, fmt.Errorf("%w: expired at %s", shared.ErrTokenExpired, tok.Expiry.Format(time.RFC3339))
	}
	return tok, nil
}

// Load returns the stored token without checking expiry, or nil when none is stored.
func (r *SessionRepository) Load() (*oauth2.Token, error) {
	access, ok, err := r.state.Get(KeyAccessToken)
	if err != nil || !ok || access == "" {
		return nil, err
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if refresh, ok, err := r.state.Get(KeyRefreshToken); err != nil {
		return nil, err
	} else if ok {
		tok.RefreshToken = refresh
	}

	if raw, ok, err := r.state.Get(KeyTokenExpiry); err != nil {
		return nil, err
	} else if ok && raw != "" {
		if exp, err := time.Parse(time.RFC3339, raw); err == nil {
			tok.Expiry = exp
		}
	}
	return tok, nil
}

// Save stores tok, replacing the previous session.
//
// When the token carries no expiry and the access token is a JWT, the expiry is taken from its exp claim.
func (r *SessionRepository) Save(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}

	if tok.Expiry.IsZero() {
		if claims, err := shared.ParseTokenClaims(tok.AccessToken); err == nil {
			tok.Expiry = claims.ExpiresAt
		}
	}

	if err := r.state.Delete(KeyRefreshToken, KeyTokenExpiry); err != nil {
		return err
	}
	if err := r.state.Set(KeyAccessToken, tok.AccessToken); err != nil {
		return err
	}
	if tok.RefreshToken != "" {
		if err := r.state.Set(KeyRefreshToken, tok.RefreshToken); err != nil {
			return err
		}
	}
	if !tok.Expiry.IsZero() {
		if err := r.state.Set(KeyTokenExpiry, tok.Expiry.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

// Clear forgets the stored session.
func (r *SessionRepository) Clear() error {
	return r.state.Delete(KeyAccessToken, KeyRefreshToken, KeyTokenExpiry)
}
