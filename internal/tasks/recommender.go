package tasks

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/repositories"
	"github.com/desertthunder/snackx/internal/shared"
)

// RecommendSource asks the backend for recommendations.
type RecommendSource interface {
	Recommend(ctx context.Context, categories []string) ([]models.Recommendation, error)
}

// JSONState stores small JSON values locally.
type JSONState interface {
	GetJSON(key string, v any) (bool, error)
	SetJSON(key string, v any) error
}

// Recommender requests recommendations and remembers the categories used to narrow them.
type Recommender struct {
	source RecommendSource
	state  JSONState
	logger *log.Logger
}

// NewRecommender creates a [Recommender]. state and logger may be nil.
func NewRecommender(src RecommendSource, state JSONState, logger *log.Logger) *Recommender {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Recommender{source: src, state: state, logger: logger}
}

// ValidateCategories trims categories and rejects any the recommendation endpoint does not know.
func ValidateCategories(categories []string) ([]string, error) {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		if !slices.Contains(models.RecommendCategories, c) {
			return nil, fmt.Errorf("%w: unknown category %q (choose from %s)",
				shared.ErrInvalidArgument, c, strings.Join(models.RecommendCategories, ", "))
		}
		out = append(out, c)
	}
	return out, nil
}

// SavedCategories returns the categories remembered from the last narrowed request.
// Missing or unreadable state yields none.
func (r *Recommender) SavedCategories() []string {
	if r.state == nil {
		return []string{}
	}
	var cats []string
	if _, err := r.state.GetJSON(repositories.KeyRecoCategories, &cats); err != nil {
		r.logger.Debug("ignoring unreadable saved categories", "err", err)
		return []string{}
	}
	if cats == nil {
		return []string{}
	}
	return cats
}

// Recommend requests recommendations narrowed to categories. An empty list means profile-only.
//
// When remember is set the categories are saved before the request is sent.
func (r *Recommender) Recommend(ctx context.Context, categories []string, remember bool) ([]models.Recommendation, error) {
	cats, err := ValidateCategories(categories)
	if err != nil {
		return nil, err
	}

	if remember && r.state != nil {
		if err := r.state.SetJSON(repositories.KeyRecoCategories, cats); err != nil {
			r.logger.Debug("failed to remember categories", "err", err)
		}
	}

	recs, err := r.source.Recommend(ctx, cats)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	return recs, nil
}

// RecommendSaved requests recommendations with the remembered categories.
func (r *Recommender) RecommendSaved(ctx context.Context) ([]models.Recommendation, error) {
	return r.Recommend(ctx, r.SavedCategories(), false)
}
