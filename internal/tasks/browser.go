package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// Searcher fetches one page of the catalog.
type Searcher interface {
	Search(ctx context.Context, q models.SnackQuery) (*models.SnackPage, error)
}

// BrowseState is what a catalog view renders.
type BrowseState struct {
	Query   models.SnackQuery
	Page    models.SnackPage
	Loading bool
	Err     error
}

// Browser pages through the catalog, keeping only the newest request's result.
type Browser struct {
	searcher Searcher
	logger   *log.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	state  BrowseState
}

// NewBrowser creates a [Browser]. logger may be nil.
func NewBrowser(s Searcher, logger *log.Logger) *Browser {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Browser{
		searcher: s,
		logger:   logger,
		state:    BrowseState{Page: models.SnackPage{Items: []models.Snack{}}},
	}
}

// Load fetches the page selected by q, cancelling the previous load if it is still running.
//
// When another Load starts before this one finishes, the result is dropped and
// [shared.ErrSuperseded] returned. A failed load clears the listed items and records the error.
func (b *Browser) Load(ctx context.Context, q models.SnackQuery) (*models.SnackPage, error) {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.seq++
	seq := b.seq
	rctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.state.Query = q
	b.state.Loading = true
	b.state.Err = nil
	b.mu.Unlock()
	defer cancel()

	page, err := b.searcher.Search(rctx, q)

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.seq {
		b.logger.Debug("dropping superseded search", "page", q.Page, "keyword", q.Keyword)
		return nil, fmt.Errorf("%w: page %d", shared.ErrSuperseded, q.Page)
	}

	b.cancel = nil
	b.state.Loading = false
	if err != nil {
		b.state.Err = err
		b.state.Page = models.SnackPage{Items: []models.Snack{}, Page: q.Page}
		return nil, err
	}

	b.state.Page = *page
	return page, nil
}

// State returns the current page, query and error.
func (b *Browser) State() BrowseState {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.state
	st.Page.Items = append([]models.Snack(nil), b.state.Page.Items...)
	return st
}

// Next loads the page after the current one.
func (b *Browser) Next(ctx context.Context) (*models.SnackPage, error) {
	st := b.State()
	if !st.Page.HasNext() {
		return nil, fmt.Errorf("%w: already on the last page", shared.ErrInvalidArgument)
	}
	q := st.Query
	q.Page = st.Page.Page + 1
	return b.Load(ctx, q)
}

// Prev loads the page before the current one.
func (b *Browser) Prev(ctx context.Context) (*models.SnackPage, error) {
	st := b.State()
	if !st.Page.HasPrev() {
		return nil, fmt.Errorf("%w: already on the first page", shared.ErrInvalidArgument)
	}
	q := st.Query
	q.Page = st.Page.Page - 1
	return b.Load(ctx, q)
}

// Cancel aborts the load in flight, if any.
func (b *Browser) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
