package repositories

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/desertthunder/snackx/internal/models"
	"github.com/desertthunder/snackx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestStateRepository(t *testing.T) {
	t.Run("Get missing key", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		v, ok, err := repo.Get("nope")
		if err != nil || ok || v != "" {
			t.Errorf("Get(nope) = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		if err := repo.Set("k", "one"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Set("k", "two"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		v, ok, err := repo.Get("k")
		if err != nil || !ok || v != "two" {
			t.Errorf("Get(k) = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))
		repo.Set("a", "1")
		repo.Set("b", "2")

		if err := repo.Delete("a", "missing"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok, _ := repo.Get("a"); ok {
			t.Error("a should be gone")
		}
		if _, ok, _ := repo.Get("b"); !ok {
			t.Error("b should remain")
		}
	})

	t.Run("JSON helpers", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		if err := repo.SetJSON(KeyRecoCategories, []string{"음료", "면류"}); err != nil {
			t.Fatalf("SetJSON() error = %v", err)
		}

		var got []string
		ok, err := repo.GetJSON(KeyRecoCategories, &got)
		if err != nil || !ok {
			t.Fatalf("GetJSON() = %v, %v", ok, err)
		}
		if !reflect.DeepEqual(got, []string{"음료", "면류"}) {
			t.Errorf("got %v", got)
		}

		repo.Set("broken", "{not json")
		if _, err := repo.GetJSON("broken", &got); !errors.Is(err, shared.ErrCacheRead) {
			t.Errorf("expected ErrCacheRead, got %v", err)
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewStateRepository(db)
		db.Close()

		if _, _, err := repo.Get("k"); !errors.Is(err, shared.ErrCacheRead) {
			t.Errorf("expected ErrCacheRead, got %v", err)
		}
		if err := repo.Set("k", "v"); !errors.Is(err, shared.ErrCacheWrite) {
			t.Errorf("expected ErrCacheWrite, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		repo := NewSessionRepository(NewStateRepository(setupTestDB(t)))

		if _, err := repo.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Save and Token", func(t *testing.T) {
		repo := NewSessionRepository(NewStateRepository(setupTestDB(t)))

		if err := repo.Save(&oauth2.Token{AccessToken: "opaque", RefreshToken: "r"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		tok, err := repo.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok.AccessToken != "opaque" || tok.RefreshToken != "r" || !tok.Expiry.IsZero() {
			t.Errorf("unexpected token %+v", tok)
		}
	})

	t.Run("expiry from JWT", func(t *testing.T) {
		repo := NewSessionRepository(NewStateRepository(setupTestDB(t)))
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return now }

		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}

		if err := repo.Save(&oauth2.Token{AccessToken: raw}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		tok, err := repo.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if !tok.Expiry.Equal(now.Add(time.Hour)) {
			t.Errorf("expiry = %v", tok.Expiry)
		}

		repo.now = func() time.Time { return now.Add(2 * time.Hour) }
		if _, err := repo.Token(); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Save replaces refresh token", func(t *testing.T) {
		repo := NewSessionRepository(NewStateRepository(setupTestDB(t)))
		repo.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "old"})
		repo.Save(&oauth2.Token{AccessToken: "b"})

		tok, err := repo.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok.AccessToken != "b" || tok.RefreshToken != "" {
			t.Errorf("unexpected token %+v", tok)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewSessionRepository(NewStateRepository(setupTestDB(t)))
		repo.Save(&oauth2.Token{AccessToken: "a"})

		if err := repo.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if _, err := repo.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated after Clear, got %v", err)
		}
	})

	t.Run("Save rejects empty", func(t *testing.T) {
		repo := NewSessionRepository(NewStateRepository(setupTestDB(t)))
		if err := repo.Save(&oauth2.Token{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestProfileCache(t *testing.T) {
	cache := NewProfileCache(NewStateRepository(setupTestDB(t)))

	purposes, allergies, err := cache.Load()
	if err != nil || len(purposes) != 0 || len(allergies) != 0 {
		t.Fatalf("empty Load() = %v, %v, %v", purposes, allergies, err)
	}

	if err := cache.Store(models.Profile{Purposes: []string{"HEART"}}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	purposes, allergies, err = cache.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(purposes, []string{"HEART"}) || len(allergies) != 0 || allergies == nil {
		t.Errorf("Load() = %v, %v", purposes, allergies)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	purposes, _, _ = cache.Load()
	if len(purposes) != 0 {
		t.Errorf("expected cleared purposes, got %v", purposes)
	}
}
