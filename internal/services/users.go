package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// Session stores the credentials issued at login.
type Session interface {
	oauth2.TokenSource
	Save(tok *oauth2.Token) error
	Clear() error
}

// ProfileStore caches the profile's health concern and allergy codes.
type ProfileStore interface {
	Store(p models.Profile) error
}

// UserService handles account registration, login and profile editing.
type UserService struct {
	api      *APIService
	session  Session
	profiles ProfileStore
	now      func() time.Time
}

// NewUserService creates a new [UserService]. profiles may be nil.
func NewUserService(api *APIService, session Session, profiles ProfileStore) *UserService {
	return &UserService{api: api, session: session, profiles: profiles, now: time.Now}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges email and password for a session and stores it.
func (s *UserService) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	resp, err := s.api.Post(ctx, "/user/logIn", credentials{Email: email, Password: password}, AuthNone)
	if err != nil {
		return nil, err
	}

	var res loginResult
	if err := resp.Decode(&res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response carried no access token", shared.ErrAPIRequest)
	}

	tok := &oauth2.Token{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, TokenType: "Bearer"}
	if claims, err := shared.ParseTokenClaims(res.AccessToken); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	if err := s.session.Save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

type signUpRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Name      string   `json:"name"`
	Allergies []string `json:"allergies"`
	Purposes  []string `json:"purposes"`
	CreatedAt string   `json:"createdAt"`
}

// SignUp validates and registers a new account. The returned string is the server's confirmation message.
func (s *UserService) SignUp(ctx context.Context, form models.SignUpForm) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	body := signUpRequest{
		Email:     strings.TrimSpace(form.Email),
		Password:  form.Password,
		Name:      strings.TrimSpace(form.Username),
		Allergies: models.NormalizeCodes(models.Allergies, form.Allergies),
		Purposes:  models.NormalizeCodes(models.HealthConcerns, form.HealthConcerns),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}

	resp, err := s.api.Post(ctx, "/user/signUp", body, AuthNone)
	if err != nil {
		return "", err
	}

	if s.profiles != nil {
		// Best effort; the account exists either way.
		_ = s.profiles.Store(models.Profile{Username: body.Name, Email: body.Email, Purposes: body.Purposes, Allergies: body.Allergies})
	}

	msg := "sign-up complete"
	var result string
	if resp.HasResult() && resp.Decode(&result) == nil && result != "" {
		msg = result
	} else if resp.Envelope != nil && resp.Envelope.Message != "" {
		msg = resp.Envelope.Message
	}
	return msg, nil
}

// Profile fetches the signed-in user's profile.
//
// A 401 response clears the stored session before the error is returned.
func (s *UserService) Profile(ctx context.Context) (*models.Profile, error) {
	resp, err := s.api.Get(ctx, "/user/getInfo", nil, AuthRequired)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			if clearErr := s.session.Clear(); clearErr != nil {
				return nil, fmt.Errorf("%w: %w (clearing session: %v)", shared.ErrNotAuthenticated, err, clearErr)
			}
			return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
		return nil, err
	}

	var p models.Profile
	if err := resp.Decode(&p); err != nil {
		return nil, err
	}
	if p.Purposes == nil {
		p.Purposes = []string{}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}

	if s.profiles != nil {
		_ = s.profiles.Store(p)
	}
	return &p, nil
}

type profilePatch struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Purposes  []string `json:"purposes"`
	Allergies []string `json:"allergies"`
}

// UpdateProfile applies upd on top of the current profile and saves it.
//
// Empty name or email keep their current value. Purposes and allergies may be given as codes or labels.
func (s *UserService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	current, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	next := upd.Apply(*current)
	if next.Email != "" && !models.ValidEmail(next.Email) {
		return nil, fmt.Errorf("%w: email is not valid: %q", shared.ErrInvalidInput, next.Email)
	}

	patch := profilePatch{Name: next.Username, Email: next.Email, Purposes: next.Purposes, Allergies: next.Allergies}
	if _, err := s.api.Patch(ctx, "/user/profile", patch, AuthRequired); err != nil {
		return nil, err
	}

	if s.profiles != nil {
		_ = s.profiles.Store(next)
	}
	return &next, nil
}
