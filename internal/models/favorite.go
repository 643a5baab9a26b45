package models

import (
	"encoding/json"
	"strconv"
)

// FavoriteItem is one favorited snack as known to the client.
//
// Only ID is required. Entries inserted optimistically carry nothing else
// until the server list replaces them.
type FavoriteItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category,omitempty"`
}

type favoriteWire struct {
	ID            *FlexID `json:"id"`
	SnackID       *FlexID `json:"snackId"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	Manufacturer  string  `json:"manufacturer"`
	Image         string  `json:"image"`
	ImageURL      string  `json:"imageUrl"`
	Category      string  `json:"category"`
	SnackCategory string  `json:"snackCategory"`
}

// UnmarshalJSON decodes both the server shape (snackId, manufacturer, imageUrl, snackCategory)
// and the canonical cache shape. snackId wins over id when both are present.
func (f *FavoriteItem) UnmarshalJSON(b []byte) error {
	var w favoriteWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*f = FavoriteItem{
		ID:       firstID(w.SnackID, w.ID),
		Name:     w.Name,
		Brand:    firstString(w.Brand, w.Manufacturer),
		Image:    firstString(w.Image, w.ImageURL),
		Category: firstString(w.Category, w.SnackCategory),
	}
	return nil
}

// IsPlaceholder reports whether the entry carries only its identifier.
func (f FavoriteItem) IsPlaceholder() bool {
	return f.Name == "" && f.Brand == "" && f.Image == "" && f.Category == ""
}

// Title is the display name, falling back to the id for placeholders.
func (f FavoriteItem) Title() string {
	if f.Name != "" {
		return f.Name
	}
	return "#" + strconv.FormatInt(f.ID, 10)
}

// NormalizeFavorites drops entries without an id and later duplicates of an id, keeping order.
func NormalizeFavorites(items []FavoriteItem) []FavoriteItem {
	out := make([]FavoriteItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.ID == 0 {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
