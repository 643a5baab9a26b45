package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// LikeService reads and toggles the signed-in user's favorite snacks.
type LikeService struct {
	api *APIService
}

// NewLikeService creates a new [LikeService].
func NewLikeService(api *APIService) *LikeService {
	return &LikeService{api: api}
}

// ListLikes fetches the authoritative favorites list.
//
// A missing or null result is an empty list. A result that is not an array is a malformed response.
func (s *LikeService) ListLikes(ctx context.Context) ([]models.FavoriteItem, error) {
	resp, err := s.api.Get(ctx, "/likes/snacks", nil, AuthRequired)
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		if resp.Envelope == nil {
			return nil, fmt.Errorf("%w: likes response is not a JSON envelope", shared.ErrNetwork)
		}
		return []models.FavoriteItem{}, nil
	}

	var items []models.FavoriteItem
	if err := json.Unmarshal(resp.Envelope.Result, &items); err != nil {
		return nil, fmt.Errorf("%w: likes result is not a list: %v", shared.ErrNetwork, err)
	}
	return models.NormalizeFavorites(items), nil
}

// ToggleLike flips the server-side favorite state of one snack.
func (s *LikeService) ToggleLike(ctx context.Context, id int64) error {
	_, err := s.api.Post(ctx, "/likes/snacks/"+strconv.FormatInt(id, 10), nil, AuthRequired)
	return err
}
