package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/snackx/internal/models"
)

var (
	_ list.Item = snackItem{}
	_ list.Item = favoriteItem{}
)

func heart(fav, pending bool) string {
	switch {
	case pending:
		return "…"
	case fav:
		return "♥"
	default:
		return "♡"
	}
}

// snackItem wraps [models.Snack] to implement [list.Item].
type snackItem struct {
	snack   models.Snack
	fav     bool
	pending bool
}

func (i snackItem) FilterValue() string { return i.snack.Name }
func (i snackItem) Title() string {
	return fmt.Sprintf("%s %s", heart(i.fav, i.pending), i.snack.Name)
}
func (i snackItem) Description() string {
	desc := i.snack.Brand
	if i.snack.Category != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.snack.Category)
	}
	if len(i.snack.Badges) > 0 {
		desc = fmt.Sprintf("%s • #%s", desc, strings.Join(i.snack.Badges, " #"))
	}
	return desc
}

// favoriteItem wraps [models.FavoriteItem] to implement [list.Item].
type favoriteItem struct {
	item    models.FavoriteItem
	pending bool
}

func (i favoriteItem) FilterValue() string { return i.item.Title() }
func (i favoriteItem) Title() string {
	return fmt.Sprintf("%s %s", heart(true, i.pending), i.item.Title())
}
func (i favoriteItem) Description() string {
	if i.item.IsPlaceholder() {
		return "syncing…"
	}
	desc := i.item.Brand
	if i.item.Category != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Category)
	}
	return desc
}
