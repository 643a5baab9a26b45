package favorites

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/services"
	"github.com/desertthunder/snackx/internal/shared"
	tu "github.com/desertthunder/snackx/internal/testing"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("quota exceeded")
	}
	c.data[key] = value
	return nil
}

func (c *memCache) seed(t *testing.T, items []models.FavoriteItem) {
	t.Helper()
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("failed to encode seed: %v", err)
	}
	c.data[CacheKey] = string(data)
}

type fixture struct {
	backend *tu.Backend
	session *tu.StaticSession
	cache   *memCache
	store   *Store
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, seed []models.FavoriteItem, timeout time.Duration) *fixture {
	t.Helper()

	f := &fixture{backend: tu.NewBackend(t), cache: newMemCache(), logs: &bytes.Buffer{}}
	f.session = tu.NewStaticSession(f.backend.Token)
	if seed != nil {
		f.cache.seed(t, seed)
	}

	api := services.NewAPIService(f.backend.URL(), nil).WithSession(f.session)
	logger := log.New(f.logs)
	logger.SetLevel(log.DebugLevel)

	f.store = New(Options{
		Remote:        services.NewLikeService(api),
		Session:       f.session,
		Cache:         f.cache,
		Logger:        logger,
		ToggleTimeout: timeout,
	})
	return f
}

// gate makes every toggle block until the returned release func runs.
func (f *fixture) gate(t *testing.T) (release func()) {
	t.Helper()
	ch := make(chan struct{})
	f.backend.ToggleGate = ch

	var once sync.Once
	release = func() { once.Do(func() { close(ch) }) }
	t.Cleanup(release)
	return release
}

// waitFor returns the first event matching op, failing the test after a second.
func waitFor(t *testing.T, events <-chan Event, op Op) Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Op == op {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", op)
			return Event{}
		}
	}
}

func (f *fixture) subscribe() <-chan Event {
	events := make(chan Event, 32)
	f.store.Subscribe(func(ev Event) { events <- ev })
	return events
}

func ids(items []models.FavoriteItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestStoreHydrate(t *testing.T) {
	t.Run("empty cache", func(t *testing.T) {
		store := New(Options{Cache: newMemCache()})
		if got := store.List(); len(got) != 0 {
			t.Errorf("expected empty list, got %+v", got)
		}
	})

	t.Run("nil cache", func(t *testing.T) {
		store := New(Options{})
		if got := store.List(); got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", got)
		}
	})

	t.Run("malformed cache is discarded and logged", func(t *testing.T) {
		cache := newMemCache()
		cache.data[CacheKey] = "{not json"
		var logs bytes.Buffer
		logger := log.New(&logs)
		logger.SetLevel(log.DebugLevel)

		store := New(Options{Cache: cache, Logger: logger})
		if got := store.List(); len(got) != 0 {
			t.Errorf("expected empty list, got %+v", got)
		}
		if !strings.Contains(logs.String(), "malformed favorites cache") {
			t.Errorf("expected debug log, got %q", logs.String())
		}
	})

	t.Run("legacy snackId entries are normalized", func(t *testing.T) {
		cache := newMemCache()
		cache.data[CacheKey] = `[{"snackId":"7","name":"Chip","manufacturer":"X"},{"id":7},{"name":"no id"}]`

		store := New(Options{Cache: cache})
		want := []models.FavoriteItem{{ID: 7, Name: "Chip", Brand: "X"}}
		if got := store.List(); !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("cache round trip across restart", func(t *testing.T) {
		f := newFixture(t, nil, 0)
		f.backend.SetLikes(7, 42)
		if err := f.store.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		before := f.store.List()

		restarted := New(Options{Cache: f.cache})
		if got := restarted.List(); !reflect.DeepEqual(got, before) {
			t.Errorf("after restart got %+v, want %+v", got, before)
		}
	})
}

func TestStoreRefresh(t *testing.T) {
	t.Run("full replace", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{{ID: 1, Name: "old"}, {ID: 2}}, 0)
		f.backend.SetLikes(42)

		if err := f.store.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		want := []models.FavoriteItem{{ID: 42, Name: "Bar", Brand: "Y", Category: "영양식품"}}
		if got := f.store.List(); !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("failure keeps current list", func(t *testing.T) {
		seed := []models.FavoriteItem{{ID: 7, Name: "Chip", Brand: "X"}}
		f := newFixture(t, seed, 0)
		f.backend.ListStatus = http.StatusInternalServerError

		err := f.store.Refresh(context.Background())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if got := f.store.List(); !reflect.DeepEqual(got, seed) {
			t.Errorf("got %+v, want %+v", got, seed)
		}
	})

	t.Run("no session is a no-op", func(t *testing.T) {
		seed := []models.FavoriteItem{{ID: 7}}
		f := newFixture(t, seed, 0)
		f.session.Clear()

		if err := f.store.Refresh(context.Background()); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if f.backend.CallCount("GET /likes/snacks") != 0 {
			t.Error("no request should be sent without a session")
		}
		if got := f.store.List(); !reflect.DeepEqual(got, seed) {
			t.Errorf("got %+v, want %+v", got, seed)
		}
	})
}

func TestStoreToggle(t *testing.T) {
	t.Run("optimistic add then success", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{}, 0)
		release := f.gate(t)
		events := f.subscribe()

		done := make(chan error, 1)
		go func() { done <- f.store.Toggle(context.Background(), 42) }()

		ev := waitFor(t, events, OpToggle)
		if !f.store.IsFavorite(42) {
			t.Fatal("optimistic add should be visible before the server answers")
		}
		if !reflect.DeepEqual(ev.Items, []models.FavoriteItem{{ID: 42}}) {
			t.Errorf("optimistic items = %+v", ev.Items)
		}
		if !f.store.Pending(42) {
			t.Error("toggle should be pending")
		}

		release()
		if err := <-done; err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}

		want := []models.FavoriteItem{{ID: 42, Name: "Bar", Brand: "Y", Category: "영양식품"}}
		if got := f.store.List(); !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
		if f.store.Pending(42) {
			t.Error("toggle should no longer be pending")
		}
	})

	t.Run("optimistic remove then failure restores full entry", func(t *testing.T) {
		seed := []models.FavoriteItem{{ID: 7, Name: "Chip", Brand: "X"}}
		f := newFixture(t, seed, 0)
		f.backend.ToggleStatus = http.StatusInternalServerError
		release := f.gate(t)
		events := f.subscribe()

		done := make(chan error, 1)
		go func() { done <- f.store.Toggle(context.Background(), 7) }()

		waitFor(t, events, OpToggle)
		if f.store.IsFavorite(7) {
			t.Fatal("optimistic removal should be visible before the server answers")
		}

		release()
		err := <-done
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}

		if got := f.store.List(); !reflect.DeepEqual(got, seed) {
			t.Errorf("got %+v, want %+v", got, seed)
		}
		ev := waitFor(t, events, OpRollback)
		if ev.Err == nil {
			t.Error("rollback event should carry the error")
		}
		if f.backend.CallCount("GET /likes/snacks") != 0 {
			t.Error("failed toggle must not refetch")
		}
	})

	t.Run("rollback keeps position", func(t *testing.T) {
		seed := []models.FavoriteItem{{ID: 1, Name: "a"}, {ID: 7, Name: "Chip"}, {ID: 9, Name: "c"}}
		f := newFixture(t, seed, 0)
		f.backend.ToggleStatus = http.StatusBadGateway

		f.store.Toggle(context.Background(), 7)
		if got := f.store.List(); !reflect.DeepEqual(got, seed) {
			t.Errorf("got %+v, want %+v", got, seed)
		}
	})

	t.Run("failed add removes placeholder", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{{ID: 1, Name: "a"}}, 0)
		f.backend.ToggleStatus = http.StatusInternalServerError

		f.store.Toggle(context.Background(), 42)
		if f.store.IsFavorite(42) {
			t.Error("placeholder should be removed")
		}
		if got := ids(f.store.List()); !reflect.DeepEqual(got, []int64{1}) {
			t.Errorf("ids = %v", got)
		}
	})

	t.Run("membership flips on success", func(t *testing.T) {
		for _, start := range []bool{false, true} {
			f := newFixture(t, nil, 0)
			if start {
				f.backend.SetLikes(51)
				f.store.Refresh(context.Background())
			}

			if err := f.store.Toggle(context.Background(), 51); err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			if f.store.IsFavorite(51) == start {
				t.Errorf("start=%v: membership did not flip", start)
			}
		}
	})

	t.Run("no session changes nothing", func(t *testing.T) {
		seed := []models.FavoriteItem{{ID: 7, Name: "Chip"}}
		f := newFixture(t, seed, 0)
		f.session.Clear()
		before := f.cache.data[CacheKey]

		err := f.store.Toggle(context.Background(), 7)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if got := f.store.List(); !reflect.DeepEqual(got, seed) {
			t.Errorf("got %+v, want %+v", got, seed)
		}
		if f.cache.data[CacheKey] != before {
			t.Error("cache should be untouched")
		}
		if f.backend.CallCount("POST /likes/snacks/{id}") != 0 {
			t.Error("no request should be sent")
		}
	})

	t.Run("second toggle for same id is rejected", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{}, 0)
		release := f.gate(t)
		events := f.subscribe()

		done := make(chan error, 1)
		go func() { done <- f.store.Toggle(context.Background(), 42) }()
		waitFor(t, events, OpToggle)

		err := f.store.Toggle(context.Background(), 42)
		if !errors.Is(err, shared.ErrToggleInFlight) {
			t.Errorf("expected ErrToggleInFlight, got %v", err)
		}
		if !f.store.IsFavorite(42) {
			t.Error("rejected toggle must not undo the pending one")
		}

		release()
		if err := <-done; err != nil {
			t.Fatalf("first Toggle() error = %v", err)
		}
		if f.backend.CallCount("POST /likes/snacks/{id}") != 1 {
			t.Errorf("expected one server toggle, got %d", f.backend.CallCount("POST /likes/snacks/{id}"))
		}
	})

	t.Run("different ids run concurrently", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{}, 0)

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, id := range []int64{7, 42} {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				errs <- f.store.Toggle(context.Background(), id)
			}(id)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("Toggle() error = %v", err)
			}
		}
		if got := f.backend.LikedIDs(); len(got) != 2 {
			t.Errorf("server likes = %v", got)
		}

		// Overlapping refreshes are last-writer-wins; a settled refresh sees both.
		f.store.Refresh(context.Background())
		if !f.store.IsFavorite(7) || !f.store.IsFavorite(42) {
			t.Errorf("both should be favorites, got %+v", f.store.List())
		}
	})

	t.Run("timeout rolls back", func(t *testing.T) {
		seed := []models.FavoriteItem{{ID: 7, Name: "Chip", Brand: "X"}}
		f := newFixture(t, seed, 50*time.Millisecond)
		f.gate(t)

		err := f.store.Toggle(context.Background(), 7)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if got := f.store.List(); !reflect.DeepEqual(got, seed) {
			t.Errorf("got %+v, want %+v", got, seed)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		f := newFixture(t, nil, 0)
		if err := f.store.Toggle(context.Background(), 0); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("refresh failure after success keeps toggle", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{}, 0)
		f.backend.ListStatus = http.StatusInternalServerError

		if err := f.store.Toggle(context.Background(), 42); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
		if !f.store.IsFavorite(42) {
			t.Error("accepted toggle should stay applied")
		}
		if !strings.Contains(f.logs.String(), "list refresh failed") {
			t.Error("expected refresh failure to be logged")
		}
	})
}

func TestStoreCache(t *testing.T) {
	t.Run("every change is persisted", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{}, 0)

		if err := f.store.Toggle(context.Background(), 42); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}

		var cached []models.FavoriteItem
		if err := json.Unmarshal([]byte(f.cache.data[CacheKey]), &cached); err != nil {
			t.Fatalf("cache is not JSON: %v", err)
		}
		if !reflect.DeepEqual(cached, f.store.List()) {
			t.Errorf("cache %+v differs from store %+v", cached, f.store.List())
		}
	})

	t.Run("write failure is swallowed", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{}, 0)
		f.cache.failSet = true

		if err := f.store.Toggle(context.Background(), 42); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
		if !f.store.IsFavorite(42) {
			t.Error("mutation should survive a cache failure")
		}
		if !strings.Contains(f.logs.String(), "cache write failed") {
			t.Error("expected debug log for cache failure")
		}
	})
}

func TestStoreRemoveClearSubscribe(t *testing.T) {
	t.Run("Remove", func(t *testing.T) {
		f := newFixture(t, nil, 0)
		f.backend.SetLikes(7)
		f.store.Refresh(context.Background())

		if removed, err := f.store.Remove(context.Background(), 42); err != nil || removed {
			t.Errorf("Remove of a non-favorite should be a no-op, got removed=%v err=%v", removed, err)
		}
		if f.backend.CallCount("POST /likes/snacks/{id}") != 0 {
			t.Error("no-op remove must not call the server")
		}

		if removed, err := f.store.Remove(context.Background(), 7); err != nil || !removed {
			t.Fatalf("Remove() = %v, %v", removed, err)
		}
		if f.store.IsFavorite(7) || len(f.backend.LikedIDs()) != 0 {
			t.Error("7 should be removed locally and on the server")
		}
	})

	t.Run("Remove with a stale cache", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{{ID: 1, Name: "stale"}}, 0)
		f.backend.SetLikes()

		removed, err := f.store.Remove(context.Background(), 1)
		if err != nil || removed {
			t.Errorf("Remove() = %v, %v; want false, nil", removed, err)
		}
		if ids := f.backend.LikedIDs(); len(ids) != 0 {
			t.Errorf("server likes = %v, the removal must not add a like", ids)
		}
		if f.store.IsFavorite(1) {
			t.Error("the stale entry should be replaced by the server list")
		}
		if f.backend.CallCount("POST /likes/snacks/{id}") != 0 {
			t.Error("no toggle expected")
		}
	})

	t.Run("Remove keeps state when the refresh fails", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{{ID: 7, Name: "Chip"}}, 0)
		f.backend.ListStatus = http.StatusInternalServerError

		if _, err := f.store.Remove(context.Background(), 7); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !f.store.IsFavorite(7) || f.backend.CallCount("POST /likes/snacks/{id}") != 0 {
			t.Error("a failed refresh must leave the collection and the server alone")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		f := newFixture(t, []models.FavoriteItem{{ID: 7}}, 0)
		f.store.Clear()

		if len(f.store.List()) != 0 {
			t.Error("expected empty list")
		}
		if f.cache.data[CacheKey] != "[]" {
			t.Errorf("cache = %q", f.cache.data[CacheKey])
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		f := newFixture(t, nil, 0)
		count := 0
		unsubscribe := f.store.Subscribe(func(Event) { count++ })

		f.store.Clear()
		unsubscribe()
		f.store.Clear()

		if count != 1 {
			t.Errorf("expected 1 event, got %d", count)
		}
	})
}

func TestToggleTxn(t *testing.T) {
	full := models.FavoriteItem{ID: 7, Name: "Chip", Brand: "X"}

	t.Run("remove and rollback", func(t *testing.T) {
		items := []models.FavoriteItem{{ID: 1}, full}
		txn := begin(items, 7)
		applied := txn.apply(items)

		if indexOf(applied, 7) >= 0 {
			t.Error("apply should remove 7")
		}
		if len(items) != 2 {
			t.Error("apply must not modify its input")
		}
		if got := txn.rollback(applied); !reflect.DeepEqual(got, items) {
			t.Errorf("rollback = %+v", got)
		}
	})

	t.Run("rollback replaces placeholder with original", func(t *testing.T) {
		txn := begin([]models.FavoriteItem{full}, 7)
		got := txn.rollback([]models.FavoriteItem{{ID: 7}})
		if !reflect.DeepEqual(got, []models.FavoriteItem{full}) {
			t.Errorf("rollback = %+v", got)
		}
	})

	t.Run("add and rollback", func(t *testing.T) {
		items := []models.FavoriteItem{{ID: 1}}
		txn := begin(items, 42)
		applied := txn.apply(items)

		if !reflect.DeepEqual(applied, []models.FavoriteItem{{ID: 1}, {ID: 42}}) {
			t.Errorf("apply = %+v", applied)
		}
		if got := txn.rollback(applied); !reflect.DeepEqual(got, items) {
			t.Errorf("rollback = %+v", got)
		}
	})
}
