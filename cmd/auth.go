package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/repositories"
	"github.com/desertthunder/snackx/internal/shared"
)

// AuthLogin signs in, stores the session and pulls the server's favorites.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireState(); err != nil {
		return err
	}

	email := cmd.String("email")
	if email == "" {
		if last, ok, err := r.state.Get(repositories.KeyLoginEmail); err == nil && ok {
			email = last
			r.logger.Debug("using last login email", "email", email)
		}
	}
	if email == "" {
		var err error
		if email, err = r.prompt("Email"); err != nil {
			return err
		}
	}

	password := cmd.String("password")
	if password == "" {
		var err error
		if password, err = r.prompt("Password"); err != nil {
			return err
		}
	}

	r.logger.Info("signing in", "email", email)
	tok, err := r.users.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := r.state.Set(repositories.KeyLoginEmail, email); err != nil {
		r.logger.Warn("failed to remember login email", "error", err)
	}

	if err := r.favorites.Refresh(ctx); err != nil {
		r.logger.Warn("signed in but favorites could not be loaded", "error", err)
	}

	r.writePlain("✓ Signed in as %s\n", email)
	if !tok.Expiry.IsZero() {
		r.writePlain("Session expires: %s\n", tok.Expiry.Local().Format(time.DateTime))
	}
	r.writePlain("Favorites: %d\n", len(r.favorites.List()))
	return nil
}

// AuthSignUp registers a new account.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	form := models.SignUpForm{
		Username:       cmd.String("name"),
		Email:          cmd.String("email"),
		Password:       cmd.String("password"),
		Confirm:        cmd.String("confirm"),
		Agree:          cmd.Bool("agree"),
		HealthConcerns: cmd.StringSlice("health"),
		Allergies:      cmd.StringSlice("allergy"),
	}

	var err error
	if form.Password == "" {
		if form.Password, err = r.prompt("Password"); err != nil {
			return err
		}
	}
	if form.Confirm == "" {
		if form.Confirm, err = r.prompt("Confirm password"); err != nil {
			return err
		}
	}

	msg, err := r.users.SignUp(ctx, form)
	if err != nil {
		return fmt.Errorf("sign-up failed: %w", err)
	}

	r.writePlain("✓ %s\n", msg)
	r.writePlain("Run 'snackx auth login --email %s' to sign in\n", form.Email)
	return nil
}

// AuthLogout forgets the session along with the cached favorites and profile.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireState(); err != nil {
		return err
	}

	if err := r.session.Clear(); err != nil {
		return err
	}
	r.favorites.Clear()
	if err := r.profiles.Clear(); err != nil {
		r.logger.Warn("failed to clear cached profile", "error", err)
	}

	r.logger.Info("session cleared")
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the stored session and its expiry.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireState(); err != nil {
		return err
	}

	tok, err := r.session.Load()
	if err != nil {
		return err
	}
	if tok == nil {
		return r.writePlain("✗ Not signed in\n")
	}

	r.writePlainHeader("Session")
	if claims, err := shared.ParseTokenClaims(tok.AccessToken); err == nil && claims.Subject != "" {
		r.writePlain("Account: %s\n", claims.Subject)
	} else if email, ok, _ := r.state.Get(repositories.KeyLoginEmail); ok {
		r.writePlain("Account: %s\n", email)
	}

	switch {
	case tok.Expiry.IsZero():
		r.writePlain("Expires: unknown\n")
	case time.Now().After(tok.Expiry):
		r.writePlain("Expires: %s (expired, run 'snackx auth login')\n", tok.Expiry.Local().Format(time.DateTime))
	default:
		r.writePlain("Expires: %s\n", tok.Expiry.Local().Format(time.DateTime))
	}
	r.writePlain("Cached favorites: %d\n", len(r.favorites.List()))
	return nil
}
