package favorites

import (
	"slices"

	"github.com/desertthunder/snackx/internal/models"
)

// toggleTxn is one optimistic toggle: the snapshot taken before it, and how to apply or undo it.
type toggleTxn struct {
	id          int64
	wasFavorite bool
	// original is the full entry removed by the toggle, with its position.
	original models.FavoriteItem
	index    int
}

func indexOf(items []models.FavoriteItem, id int64) int {
	return slices.IndexFunc(items, func(f models.FavoriteItem) bool { return f.ID == id })
}

// begin snapshots the membership of id in items.
func begin(items []models.FavoriteItem, id int64) toggleTxn {
	txn := toggleTxn{id: id, index: indexOf(items, id)}
	if txn.index >= 0 {
		txn.wasFavorite = true
		txn.original = items[txn.index]
	}
	return txn
}

// apply returns items with the tentative change: the entry removed, or an id-only placeholder appended.
func (t toggleTxn) apply(items []models.FavoriteItem) []models.FavoriteItem {
	next := slices.Clone(items)
	if i := indexOf(next, t.id); i >= 0 {
		if t.wasFavorite {
			return slices.Delete(next, i, i+1)
		}
		return next
	}
	if t.wasFavorite {
		return next
	}
	return append(next, models.FavoriteItem{ID: t.id})
}

// rollback returns items with the pre-toggle membership of id restored.
//
// A removed entry comes back with all of its display fields at its old position.
// An inserted one is dropped.
func (t toggleTxn) rollback(items []models.FavoriteItem) []models.FavoriteItem {
	next := slices.Clone(items)
	i := indexOf(next, t.id)

	if !t.wasFavorite {
		if i >= 0 {
			next = slices.Delete(next, i, i+1)
		}
		return next
	}

	if i >= 0 {
		next[i] = t.original
		return next
	}
	return slices.Insert(next, min(t.index, len(next)), t.original)
}
