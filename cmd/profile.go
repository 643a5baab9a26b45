package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/formatter"
	"github.com/desertthunder/snackx/internal/models"
)

// ProfileShow prints the signed-in user's profile.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.signedIn(); err != nil {
		return err
	}

	p, err := r.users.Profile(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return formatter.WriteProfile(r.output, p)
}

// ProfileUpdate changes the fields given on the command line and keeps the rest.
func (r *Runner) ProfileUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.signedIn(); err != nil {
		return err
	}

	p, err := r.users.UpdateProfile(ctx, models.ProfileUpdate{
		Name:      cmd.String("name"),
		Email:     cmd.String("email"),
		Purposes:  cmd.StringSlice("health"),
		Allergies: cmd.StringSlice("allergy"),
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Profile updated\n\n")
	return formatter.WriteProfile(r.output, p)
}
