package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/formatter"
	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
	"github.com/desertthunder/snackx/internal/tasks"
)

// signedIn fails with a hint when no usable session is stored.
func (r *Runner) signedIn() error {
	if err := r.requireState(); err != nil {
		return err
	}
	if _, err := r.session.Token(); err != nil {
		return fmt.Errorf("%w (run 'snackx auth login')", err)
	}
	return nil
}

// syncFavorites replaces the cached favorites with the server's list before a membership decision.
func (r *Runner) syncFavorites(ctx context.Context) error {
	if err := r.favorites.Refresh(ctx); err != nil {
		return fmt.Errorf("cannot confirm current favorites: %w", err)
	}
	return nil
}

// FavoritesList prints the favorites, refreshed from the server unless --offline.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("offline") {
		if err := r.favorites.Refresh(ctx); err != nil {
			r.logger.Warn("showing cached favorites", "error", err)
		}
	}

	items := r.favorites.List()
	if cmd.Bool("json") {
		return r.writeJSON(items, true)
	}
	if len(items) == 0 {
		return r.writePlain("No favorites yet. Add one with 'snackx favorites toggle <id>'.\n")
	}

	r.writePlainHeader(fmt.Sprintf("♥ Favorites (%d)", len(items)))
	for i, item := range items {
		r.writePlain("%d. %s\n", i+1, formatter.FavoriteLine(item))
	}
	return nil
}

// FavoritesToggle flips one snack's favorite state.
func (r *Runner) FavoritesToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := models.ParseSnackID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := r.signedIn(); err != nil {
		return err
	}
	if err := r.syncFavorites(ctx); err != nil {
		return err
	}

	if err := r.favorites.Toggle(ctx, id); err != nil {
		return err
	}

	if r.favorites.IsFavorite(id) {
		return r.writePlain("♥ Added #%d to favorites\n", id)
	}
	return r.writePlain("♡ Removed #%d from favorites\n", id)
}

// FavoritesRemove drops one snack from favorites.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := models.ParseSnackID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := r.signedIn(); err != nil {
		return err
	}

	removed, err := r.favorites.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return r.writePlain("#%d is not a favorite\n", id)
	}
	return r.writePlain("♡ Removed #%d from favorites\n", id)
}

// FavoritesRefresh replaces the cached favorites with the server's list.
func (r *Runner) FavoritesRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.signedIn(); err != nil {
		return err
	}
	if err := r.favorites.Refresh(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ %d favorites\n", len(r.favorites.List()))
}

// FavoritesExport writes the favorites, optionally with nutrition facts, to a file.
func (r *Runner) FavoritesExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	output := cmd.String("output")
	if output == "" {
		output = defaultExportPath(format)
	}

	prog, stop := r.logProgress()
	defer stop()

	prog <- tasks.ProgressUpdate{Phase: tasks.PhaseFetchFavorites, Total: 1, Message: "Fetching favorites..."}
	if err := r.favorites.Refresh(ctx); err != nil {
		r.logger.Warn("exporting cached favorites", "error", err)
	}

	export := &formatter.FavoritesExport{ExportedAt: time.Now(), Items: r.favorites.List()}
	prog <- tasks.ProgressUpdate{
		Phase: tasks.PhaseFetchFavorites, Step: 1, Total: 1,
		Message: fmt.Sprintf("Found %d favorites", len(export.Items)),
		Data:    export.Items,
	}
	if len(export.Items) == 0 {
		return fmt.Errorf("%w: no favorites to export", shared.ErrInvalidInput)
	}

	if cmd.Bool("details") {
		ids := make([]int64, len(export.Items))
		for i, item := range export.Items {
			ids[i] = item.ID
		}

		res, err := tasks.FetchDetails(ctx, prog, r.snacks, ids, tasks.DetailOpts{
			NumWorkers: cmd.Int("workers"),
			RateLimit:  r.config.API.RequestsPerSecond,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if res != nil {
			export.Details = res.Details()
			if res.Failed > 0 {
				r.logger.Warn("some details could not be fetched", "failed", res.Failed, "total", res.Total)
			}
		}
	}

	prog <- tasks.ProgressUpdate{Phase: tasks.PhaseWriteExport, Total: 1, Message: fmt.Sprintf("Writing %s export to %s...", format, output)}
	result, err := formatter.WriteExport(export, format, output, cmd.Bool("images"), r.output)
	if err != nil {
		return err
	}
	prog <- tasks.ProgressUpdate{
		Phase: tasks.PhaseWriteExport, Step: 1, Total: 1,
		Message: fmt.Sprintf("Wrote %d files", len(result.Files)),
		Data:    result,
	}

	r.writePlain("✓ Exported %d favorites as %s\n", len(export.Items), format)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// logProgress logs every update sent on the returned channel until stop is called.
func (r *Runner) logProgress() (prog chan tasks.ProgressUpdate, stop func()) {
	prog = make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()
	return prog, func() {
		close(prog)
		<-done
	}
}

func defaultExportPath(format string) string {
	switch format {
	case "markdown":
		return "favorites_export"
	case "txt":
		return "favorites.txt"
	case "csv":
		return "favorites.csv"
	default:
		return "favorites.json"
	}
}
