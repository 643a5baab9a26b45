package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// DefaultPageSize is the number of snacks per search page.
const DefaultPageSize = 6

// SnackService searches the catalog, reads snack details and asks for recommendations.
type SnackService struct {
	api      *APIService
	pageSize int
}

// NewSnackService creates a new [SnackService]. A non-positive pageSize uses [DefaultPageSize].
func NewSnackService(api *APIService, pageSize int) *SnackService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SnackService{api: api, pageSize: pageSize}
}

// PageSize returns the page size used when a query leaves Size unset.
func (s *SnackService) PageSize() int { return s.pageSize }

type pageWire struct {
	Content       []models.Snack `json:"content"`
	TotalPages    int            `json:"totalPages"`
	TotalElements *int           `json:"totalElements"`
}

// Search fetches one page of the catalog.
func (s *SnackService) Search(ctx context.Context, q models.SnackQuery) (*models.SnackPage, error) {
	if q.Size <= 0 {
		q.Size = s.pageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}

	resp, err := s.api.Get(ctx, "/api/snacks", searchValues(q), AuthNone)
	if err != nil {
		return nil, err
	}

	pg, err := pickPage(resp.Body)
	if err != nil {
		return nil, err
	}

	items := pg.Content
	if len(items) > q.Size {
		items = items[:q.Size]
	}
	if items == nil {
		items = []models.Snack{}
	}

	page := &models.SnackPage{Items: items, Page: q.Page, TotalPages: pg.TotalPages, TotalElements: len(items)}
	if pg.TotalElements != nil {
		page.TotalElements = *pg.TotalElements
	}
	return page, nil
}

func searchValues(q models.SnackQuery) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		v.Set("keyword", kw)
	}
	if !models.IsAllCategory(q.Category) {
		v.Set("category", strings.TrimSpace(q.Category))
	}
	for _, h := range q.Hashtags {
		if h = strings.TrimSpace(h); h != "" {
			v.Add("hashtags", h)
		}
	}
	return v
}

// pickPage finds the page object at result, at the top level, or under data, in that order.
func pickPage(body []byte) (pageWire, error) {
	var top struct {
		Result json.RawMessage `json:"result"`
		Data   json.RawMessage `json:"data"`
	}
	if len(body) == 0 {
		return pageWire{}, nil
	}
	if err := json.Unmarshal(body, &top); err != nil {
		return pageWire{}, fmt.Errorf("%w: malformed search response: %v", shared.ErrNetwork, err)
	}

	for _, raw := range []json.RawMessage{top.Result, body, top.Data} {
		var pg pageWire
		if len(raw) == 0 || json.Unmarshal(raw, &pg) != nil {
			continue
		}
		if pg.Content != nil {
			return pg, nil
		}
	}
	return pageWire{}, nil
}

// Detail fetches one snack with its nutrition facts.
func (s *SnackService) Detail(ctx context.Context, id int64) (*models.SnackDetail, error) {
	resp, err := s.api.Get(ctx, "/api/snacks/"+strconv.FormatInt(id, 10), nil, AuthNone)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %d: %w", shared.ErrSnackNotFound, id, err)
		}
		return nil, err
	}

	var d models.SnackDetail
	if err := resp.Decode(&d); err != nil {
		return nil, err
	}
	if d.ID == 0 {
		d.ID = id
	}
	return &d, nil
}

// Recommend asks for snacks suited to the user's health profile, narrowed to categories when any are given.
//
// The bearer token is attached when a session exists; anonymous requests are allowed.
func (s *SnackService) Recommend(ctx context.Context, categories []string) ([]models.Recommendation, error) {
	if categories == nil {
		categories = []string{}
	}

	resp, err := s.api.Post(ctx, "/recommend", map[string][]string{"snackCategories": categories}, AuthOptional)
	if err != nil {
		return nil, err
	}
	if !resp.HasResult() {
		return []models.Recommendation{}, nil
	}

	var result struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(resp.Envelope.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed recommendation result: %v", shared.ErrNetwork, err)
	}
	if result.Recommendations == nil {
		return []models.Recommendation{}, nil
	}
	return result.Recommendations, nil
}
