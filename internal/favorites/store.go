package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// CacheKey is the local state key holding the serialized collection.
const CacheKey = "favSnacks"

// DefaultToggleTimeout bounds the server call of one toggle.
const DefaultToggleTimeout = 12 * time.Second

// Remote is the server side of favorites.
type Remote interface {
	ListLikes(ctx context.Context) ([]models.FavoriteItem, error)
	ToggleLike(ctx context.Context, id int64) error
}

// Cache is the local key-value storage the collection is mirrored to.
type Cache interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Op names the kind of change an [Event] reports.
type Op string

const (
	OpHydrate  Op = "hydrate"
	OpToggle   Op = "toggle"
	OpRollback Op = "rollback"
	OpRefresh  Op = "refresh"
	OpClear    Op = "clear"
)

// Event is delivered to subscribers after every change and every failure.
//
// Items is the collection after the change. For failures that changed nothing, Items is the current collection.
type Event struct {
	Op    Op
	ID    int64
	Items []models.FavoriteItem
	Err   error
}

// Options configures a [Store].
type Options struct {
	Remote  Remote
	Session oauth2.TokenSource
	// Cache may be nil, in which case nothing is persisted.
	Cache         Cache
	Logger        *log.Logger
	ToggleTimeout time.Duration
}

// Store is the favorites synchronization store.
type Store struct {
	remote  Remote
	session oauth2.TokenSource
	cache   Cache
	logger  *log.Logger
	timeout time.Duration

	mu        sync.Mutex
	items     []models.FavoriteItem
	version   uint64
	inflight  map[int64]struct{}
	listeners map[int]func(Event)
	nextSub   int

	// syncMu orders cache writes so an older snapshot never overwrites a newer one.
	syncMu    sync.Mutex
	persisted uint64
}

// New creates a store and seeds it from the cache.
func New(opts Options) *Store {
	s := &Store{
		remote:    opts.Remote,
		session:   opts.Session,
		cache:     opts.Cache,
		logger:    opts.Logger,
		timeout:   opts.ToggleTimeout,
		inflight:  map[int64]struct{}{},
		listeners: map[int]func(Event){},
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.timeout <= 0 {
		s.timeout = DefaultToggleTimeout
	}

	s.items = s.hydrate()
	return s
}

// hydrate reads the cached collection. Absence or corruption yields an empty collection.
func (s *Store) hydrate() []models.FavoriteItem {
	if s.cache == nil {
		return []models.FavoriteItem{}
	}

	raw, ok, err := s.cache.Get(CacheKey)
	if err != nil {
		s.logger.Debug("favorites cache unreadable, starting empty", "err", err)
		return []models.FavoriteItem{}
	}
	if !ok || raw == "" {
		return []models.FavoriteItem{}
	}

	var items []models.FavoriteItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Debug("discarding malformed favorites cache", "err", fmt.Errorf("%w: %v", shared.ErrCacheRead, err))
		return []models.FavoriteItem{}
	}
	return models.NormalizeFavorites(items)
}

// IsFavorite reports whether id is in the current collection.
func (s *Store) IsFavorite(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.items, id) >= 0
}

// List returns a copy of the current collection.
func (s *Store) List() []models.FavoriteItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Pending reports whether a toggle for id is waiting on the server.
func (s *Store) Pending(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

// Subscribe registers fn for change events and returns a function that removes it.
//
// fn runs on the goroutine that made the change, outside the store's lock.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// authenticated reports whether the session currently holds a usable token.
func (s *Store) authenticated() bool {
	if s.session == nil {
		return false
	}
	tok, err := s.session.Token()
	return err == nil && tok.Valid()
}

// Refresh replaces the collection with the server's list.
//
// Without a session it returns nil and changes nothing. On failure the collection is left untouched.
func (s *Store) Refresh(ctx context.Context) error {
	if !s.authenticated() {
		return nil
	}

	items, err := s.remote.ListLikes(ctx)
	if err != nil {
		err = fmt.Errorf("refresh favorites: %w", err)
		s.logger.Warn("favorites refresh failed, keeping current list", "err", err)
		s.report(Event{Op: OpRefresh, Err: err})
		return err
	}

	s.replace(OpRefresh, 0, func([]models.FavoriteItem) []models.FavoriteItem {
		return models.NormalizeFavorites(items)
	})
	return nil
}

// Toggle flips whether id is a favorite.
//
// The local change is visible to [Store.IsFavorite], [Store.List] and subscribers before the server answers.
// On success the list is re-fetched; a failed re-fetch is logged and does not fail the toggle.
// On failure, including the toggle timeout, the pre-toggle entry is restored and the error returned.
func (s *Store) Toggle(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: snack id must be positive, got %d", shared.ErrInvalidArgument, id)
	}
	if !s.authenticated() {
		s.logger.Warn("favorite toggle needs a session", "id", id)
		s.report(Event{Op: OpToggle, ID: id, Err: shared.ErrNotAuthenticated})
		return shared.ErrNotAuthenticated
	}

	s.mu.Lock()
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %d", shared.ErrToggleInFlight, id)
		s.logger.Debug("favorite toggle rejected", "id", id, "err", err)
		s.report(Event{Op: OpToggle, ID: id, Err: err})
		return err
	}
	s.inflight[id] = struct{}{}
	txn := begin(s.items, id)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}()

	s.replace(OpToggle, id, txn.apply)

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.remote.ToggleLike(tctx, id)
	timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		if timedOut && !errors.Is(err, shared.ErrTimeout) {
			err = fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		err = fmt.Errorf("toggle favorite %d: %w", id, err)
		s.logger.Warn("favorite toggle failed, rolled back", "id", id, "was_favorite", txn.wasFavorite, "err", err)
		s.replaceWithErr(OpRollback, id, txn.rollback, err)
		return err
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("favorite toggled but list refresh failed", "id", id, "err", err)
	}
	return nil
}

// Remove drops id from the favorites on the server and locally.
//
// Membership is decided on a freshly refreshed list so a stale cache never turns a removal into an add.
// removed is false, with a nil error, when id is not a favorite on the server.
func (s *Store) Remove(ctx context.Context, id int64) (removed bool, err error) {
	if err := s.Refresh(ctx); err != nil {
		return false, err
	}
	if !s.IsFavorite(id) {
		return false, nil
	}
	if err := s.Toggle(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// Clear empties the local collection without contacting the server.
func (s *Store) Clear() {
	s.replace(OpClear, 0, func([]models.FavoriteItem) []models.FavoriteItem {
		return []models.FavoriteItem{}
	})
}

func (s *Store) replace(op Op, id int64, fn func([]models.FavoriteItem) []models.FavoriteItem) {
	s.replaceWithErr(op, id, fn, nil)
}

// replaceWithErr swaps the collection under the lock, then persists and notifies outside it.
func (s *Store) replaceWithErr(op Op, id int64, fn func([]models.FavoriteItem) []models.FavoriteItem, err error) {
	s.mu.Lock()
	s.items = fn(s.items)
	s.version++
	version := s.version
	snapshot := slices.Clone(s.items)
	s.mu.Unlock()

	s.persist(version, snapshot)
	s.report(Event{Op: op, ID: id, Items: snapshot, Err: err})
}

// persist writes snapshot to the cache unless a newer version was already written.
func (s *Store) persist(version uint64, snapshot []models.FavoriteItem) {
	if s.cache == nil {
		return
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	if version <= s.persisted {
		return
	}

	data, err := json.Marshal(snapshot)
	if err == nil {
		err = s.cache.Set(CacheKey, string(data))
	}
	if err != nil {
		s.logger.Debug("favorites cache write failed", "err", fmt.Errorf("%w: %v", shared.ErrCacheWrite, err))
		return
	}
	s.persisted = version
}

func (s *Store) report(ev Event) {
	s.mu.Lock()
	if ev.Items == nil {
		ev.Items = slices.Clone(s.items)
	}
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
