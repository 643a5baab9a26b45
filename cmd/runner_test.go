package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/favorites"
	"github.com/desertthunder/snackx/internal/shared"
	tu "github.com/desertthunder/snackx/internal/testing"
)

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

type cliHarness struct {
	backend *tu.Backend
	db      *sql.DB
	output  *bytes.Buffer
	logs    *bytes.Buffer
	runner  *Runner
}

func newCLIHarness(t *testing.T, input string) *cliHarness {
	t.Helper()

	backend := tu.NewBackend(t)
	h := &cliHarness{backend: backend, db: setupTestDB(t), output: &bytes.Buffer{}, logs: &bytes.Buffer{}}
	h.runner = h.newRunner(input)
	return h
}

// newRunner builds a runner over the harness database, as a fresh process would.
func (h *cliHarness) newRunner(input string) *Runner {
	config := shared.DefaultConfig()
	config.API.BaseURL = h.backend.URL()
	config.API.RequestsPerSecond = 0

	return NewRunner(RunnerOpts{
		Config: config,
		DB:     h.db,
		Logger: shared.NewLogger(h.logs),
		Output: h.output,
		Input:  strings.NewReader(input),
	})
}

func (h *cliHarness) run(args ...string) error {
	h.output.Reset()
	app := &cli.Command{Name: "snackx", Commands: h.runner.register()}
	return app.Run(context.Background(), append([]string{"snackx"}, args...))
}

func (h *cliHarness) login(t *testing.T) {
	t.Helper()
	if err := h.run("auth", "login", "--email", h.backend.Email, "--password", h.backend.Password); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			db := setupTestDB(t)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				DB:         db,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.state == nil || runner.session == nil || runner.favorites == nil {
				t.Error("expected state, session and favorites to be wired")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.state != nil {
				t.Error("expected no state without a database")
			}
			if err := runner.requireState(); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		var names []string
		for _, c := range commands {
			names = append(names, c.Name)
		}
		want := []string{"setup", "auth", "snacks", "favorites", "profile", "api", "tui"}
		if !reflect.DeepEqual(names, want) {
			t.Errorf("commands = %v, want %v", names, want)
		}
	})

	t.Run("prompt", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader("secret\n")})

		got, err := runner.prompt("Password")
		if err != nil || got != "secret" {
			t.Errorf("prompt() = %q, %v", got, err)
		}
		if _, err := runner.prompt("Password"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument on EOF, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("login stores the session and pulls favorites", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.backend.SetLikes(7)
		h.login(t)

		if !strings.Contains(h.output.String(), "Signed in as kim@example.com") || !strings.Contains(h.output.String(), "Favorites: 1") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Account: kim@example.com") || !strings.Contains(h.output.String(), "Expires: unknown") {
			t.Errorf("unexpected status:\n%s", h.output.String())
		}
	})

	t.Run("login prompts for the password and remembers the email", func(t *testing.T) {
		h := newCLIHarness(t, "secret123\n")
		if err := h.run("auth", "login", "--email", "kim@example.com"); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		h.runner = h.newRunner("secret123\n")
		if err := h.run("auth", "login"); err != nil {
			t.Fatalf("second login failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Signed in as kim@example.com") {
			t.Errorf("expected remembered email, got:\n%s", h.output.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newCLIHarness(t, "")
		err := h.run("auth", "login", "--email", "kim@example.com", "--password", "nope")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("signup validates then registers", func(t *testing.T) {
		h := newCLIHarness(t, "")
		err := h.run("auth", "signup", "--name", "lee", "--email", "lee@example.com", "--password", "short", "--confirm", "short")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}

		err = h.run("auth", "signup", "--name", "lee", "--email", "lee@example.com",
			"--password", "password1", "--confirm", "password1", "--agree", "--health", "혈당", "--allergy", "peanut")
		if err != nil {
			t.Fatalf("signup failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "welcome") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if got := h.backend.LastSignUp["purposes"]; !reflect.DeepEqual(got, []any{"BLOOD_SUGAR"}) {
			t.Errorf("purposes sent = %v", got)
		}
	})

	t.Run("logout forgets session and favorites", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.backend.SetLikes(7)
		h.login(t)

		if err := h.run("auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if len(h.runner.favorites.List()) != 0 {
			t.Error("expected favorites to be cleared")
		}

		h.run("auth", "status")
		if !strings.Contains(h.output.String(), "Not signed in") {
			t.Errorf("unexpected status:\n%s", h.output.String())
		}
	})
}

func TestFavoritesCommands(t *testing.T) {
	t.Run("toggle needs a session", func(t *testing.T) {
		h := newCLIHarness(t, "")
		if err := h.run("favorites", "toggle", "42"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("toggle adds then removes and survives a restart", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.login(t)

		if err := h.run("favorites", "toggle", "42"); err != nil {
			t.Fatalf("toggle failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Added #42") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if ids := h.backend.LikedIDs(); !reflect.DeepEqual(ids, []int64{42}) {
			t.Errorf("server likes = %v", ids)
		}

		h.runner = h.newRunner("")
		if err := h.run("favorites", "list", "--offline"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Bar - Y (영양식품) [#42]") {
			t.Errorf("cached list missing entry:\n%s", h.output.String())
		}

		if err := h.run("favorites", "remove", "42"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if h.runner.favorites.IsFavorite(42) || len(h.backend.LikedIDs()) != 0 {
			t.Error("expected 42 to be removed everywhere")
		}

		h.run("favorites", "remove", "42")
		if !strings.Contains(h.output.String(), "not a favorite") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
	})

	t.Run("stale cache is refreshed before deciding membership", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.login(t)
		if err := h.runner.state.Set(favorites.CacheKey, `[{"id":1,"name":"stale"},{"id":7,"name":"Chip"}]`); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}
		h.runner = h.newRunner("")

		if err := h.run("favorites", "remove", "1"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "#1 is not a favorite") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if ids := h.backend.LikedIDs(); len(ids) != 0 {
			t.Errorf("server likes = %v, remove must not add a like", ids)
		}

		h.runner = h.newRunner("")
		if err := h.run("favorites", "toggle", "7"); err != nil {
			t.Fatalf("toggle failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Added #7") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
		if ids := h.backend.LikedIDs(); !reflect.DeepEqual(ids, []int64{7}) {
			t.Errorf("server likes = %v", ids)
		}
	})

	t.Run("server failure rolls back", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.login(t)
		h.backend.ToggleStatus = http.StatusInternalServerError

		if err := h.run("favorites", "toggle", "7"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if h.runner.favorites.IsFavorite(7) {
			t.Error("expected rollback")
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		h := newCLIHarness(t, "")
		if err := h.run("favorites", "toggle", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export with details", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.backend.SetLikes(7, 51)
		h.login(t)

		path := filepath.Join(t.TempDir(), "favs.csv")
		if err := h.run("favorites", "export", "--format", "csv", "--output", path, "--details"); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("export not written: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 || !strings.Contains(lines[0], "EnergyKcal") {
			t.Errorf("unexpected CSV:\n%s", data)
		}

		logs := h.logs.String()
		for _, phase := range []string{"phase=fetch_favorites", "phase=fetch_details", "phase=write_export"} {
			if !strings.Contains(logs, phase) {
				t.Errorf("expected %s in progress logs:\n%s", phase, logs)
			}
		}
		if strings.Index(logs, "phase=fetch_favorites") > strings.Index(logs, "phase=write_export") {
			t.Error("expected favorites to be fetched before the export is written")
		}
	})

	t.Run("export with nothing to export", func(t *testing.T) {
		h := newCLIHarness(t, "")
		err := h.run("favorites", "export", "--output", filepath.Join(t.TempDir(), "f.json"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestSnacksCommands(t *testing.T) {
	t.Run("search marks favorites", func(t *testing.T) {
		h := newCLIHarness(t, "")
		h.backend.SetLikes(51)
		h.login(t)

		if err := h.run("snacks", "search", "soy"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "♥") || !strings.Contains(h.output.String(), "Soy Milk") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
	})

	t.Run("search rejects page zero", func(t *testing.T) {
		h := newCLIHarness(t, "")
		if err := h.run("snacks", "search", "--page", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("show", func(t *testing.T) {
		h := newCLIHarness(t, "")
		if err := h.run("snacks", "show", "7"); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "♡ Chip") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}

		if err := h.run("snacks", "show", "999"); !errors.Is(err, shared.ErrSnackNotFound) {
			t.Errorf("expected ErrSnackNotFound, got %v", err)
		}
	})

	t.Run("recommend remembers categories", func(t *testing.T) {
		h := newCLIHarness(t, "")
		if err := h.run("snacks", "recommend", "--category", "음료", "--save"); err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		if !strings.Contains(h.output.String(), "Soy Milk") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}

		h.backend.LastCategories = nil
		if err := h.run("snacks", "recommend"); err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		if !reflect.DeepEqual(h.backend.LastCategories, []string{"음료"}) {
			t.Errorf("categories sent = %v", h.backend.LastCategories)
		}
	})

	t.Run("recommend keeps commas inside a category", func(t *testing.T) {
		h := newCLIHarness(t, "")
		if err := h.run("snacks", "recommend", "--category", "과자,떡,빵", "--category", "음료"); err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		if !reflect.DeepEqual(h.backend.LastCategories, []string{"과자,떡,빵", "음료"}) {
			t.Errorf("categories sent = %v", h.backend.LastCategories)
		}
		if !strings.Contains(h.output.String(), "Chip") {
			t.Errorf("unexpected output:\n%s", h.output.String())
		}
	})
}

func TestProfileCommands(t *testing.T) {
	h := newCLIHarness(t, "")
	if err := h.run("profile", "show"); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	h.login(t)
	if err := h.run("profile", "show"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(h.output.String(), "혈당") || !strings.Contains(h.output.String(), "우유") {
		t.Errorf("unexpected output:\n%s", h.output.String())
	}

	if err := h.run("profile", "update", "--name", "kim2", "--allergy", "EGG"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if h.backend.LastPatch["name"] != "kim2" || !reflect.DeepEqual(h.backend.LastPatch["allergies"], []any{"EGG"}) {
		t.Errorf("patch sent = %v", h.backend.LastPatch)
	}
}

func TestAPICommands(t *testing.T) {
	h := newCLIHarness(t, "")
	if err := h.run("api", "get", "/api/snacks/7"); err != nil {
		t.Fatalf("api get failed: %v", err)
	}
	if !strings.Contains(h.output.String(), `"name": "Chip"`) {
		t.Errorf("unexpected output:\n%s", h.output.String())
	}

	if err := h.run("api", "post", "/recommend", "--data", "not json"); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	orig := tu.MustGetwd(t)
	tu.MustChdir(t, dir)
	defer tu.MustChdir(t, orig)

	h := newCLIHarness(t, "")
	if err := h.run("setup", "--config", "config.toml"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "snackx.db"))
}
