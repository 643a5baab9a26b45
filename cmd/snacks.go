package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/formatter"
	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// SnacksSearch prints one page of catalog results with favorite markers.
func (r *Runner) SnacksSearch(ctx context.Context, cmd *cli.Command) error {
	page := cmd.Int("page")
	if page < 1 {
		return fmt.Errorf("%w: --page starts at 1", shared.ErrInvalidArgument)
	}

	category := strings.TrimSpace(cmd.String("category"))
	if models.IsAllCategory(category) {
		category = ""
	} else if !slices.Contains(models.CatalogCategories, category) {
		r.logger.Warn("unknown category, the server may return nothing", "category", category)
	}

	q := models.SnackQuery{
		Page:     page - 1,
		Size:     cmd.Int("size"),
		Keyword:  cmd.StringArg("keyword"),
		Category: category,
		Hashtags: cmd.StringSlice("tag"),
	}
	r.logger.Debug("searching catalog", "keyword", q.Keyword, "category", q.Category, "tags", q.Hashtags, "page", q.Page)

	result, err := r.browser.Load(ctx, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	if len(result.Items) == 0 {
		return r.writePlain("No snacks found.\n")
	}
	return formatter.WritePage(r.output, result, r.favorites.IsFavorite)
}

// SnacksShow prints one snack's nutrition facts.
func (r *Runner) SnacksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := models.ParseSnackID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	detail, err := r.snacks.Detail(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		if detail.Image == "" {
			r.logger.Warn("snack has no picture", "id", id)
		} else if err := shared.OpenBrowser(detail.Image); err != nil {
			r.logger.Warn("failed to open picture", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}
	return formatter.WriteDetail(r.output, detail, r.favorites.IsFavorite(id))
}

// SnacksRecommend prints recommendations, narrowed by the given or remembered categories.
func (r *Runner) SnacksRecommend(ctx context.Context, cmd *cli.Command) error {
	categories := cmd.StringSlice("category")
	save := cmd.Bool("save")

	var (
		recs []models.Recommendation
		err  error
	)
	if len(categories) == 0 && !save {
		if saved := r.recommender.SavedCategories(); len(saved) > 0 {
			r.logger.Info("using remembered categories", "categories", saved)
		}
		recs, err = r.recommender.RecommendSaved(ctx)
	} else {
		recs, err = r.recommender.Recommend(ctx, categories, save)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(recs, true)
	}
	return formatter.WriteRecommendations(r.output, recs)
}
