package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// SnackFixture is a catalog entry in the backend's own field names.
type SnackFixture struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Manufacturer  string   `json:"manufacturer,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	SnackCategory string   `json:"snackCategory,omitempty"`
	Hashtags      []string `json:"hashtags,omitempty"`
	EnergyKcal    *float64 `json:"energyKcal,omitempty"`
	SugarG        *float64 `json:"sugarG,omitempty"`
}

type likeWire struct {
	SnackID       int64  `json:"snackId"`
	Name          string `json:"name,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
	SnackCategory string `json:"snackCategory,omitempty"`
}

// Backend is an in-process fake of the Silver Snack REST API.
//
// Fields may be changed between requests; access from handlers is serialized.
type Backend struct {
	Server *httptest.Server

	mu sync.Mutex

	Token    string
	Email    string
	Password string
	Username string

	Catalog   []SnackFixture
	Likes     []int64
	Purposes  []string
	Allergies []string

	// ToggleStatus, when non-zero, makes POST /likes/snacks/{id} fail with that status.
	ToggleStatus int
	// ToggleGate, when non-nil, holds each toggle until a value is received.
	ToggleGate chan struct{}
	// ListStatus, when non-zero, makes GET /likes/snacks fail with that status.
	ListStatus int

	Calls          map[string]int
	LastCategories []string
	LastPatch      map[string]any
	LastSignUp     map[string]any
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		Token:    "test-token",
		Email:    "kim@example.com",
		Password: "secret123",
		Username: "kim",
		Catalog: []SnackFixture{
			{ID: 7, Name: "Chip", Manufacturer: "X", SnackCategory: "과자,떡,빵", Hashtags: []string{"저염"}},
			{ID: 42, Name: "Bar", Manufacturer: "Y", SnackCategory: "영양식품", Hashtags: []string{"고단백"}},
			{ID: 51, Name: "Soy Milk", Manufacturer: "Z", SnackCategory: "음료", Hashtags: []string{"저당"}},
		},
		Purposes:  []string{"BLOOD_SUGAR"},
		Allergies: []string{"MILK"},
		Calls:     map[string]int{},
	}

	mux := http.NewServeMux()
	b.route(mux, "GET /likes/snacks", b.listLikes, b.requireAuth)
	b.route(mux, "POST /likes/snacks/{id}", b.toggleLike, b.requireAuth)
	b.route(mux, "GET /api/snacks", b.search)
	b.route(mux, "GET /api/snacks/{id}", b.detail)
	b.route(mux, "POST /recommend", b.recommend)
	b.route(mux, "POST /user/logIn", b.login)
	b.route(mux, "POST /user/signUp", b.signUp)
	b.route(mux, "GET /user/getInfo", b.getInfo, b.requireAuth)
	b.route(mux, "PATCH /user/profile", b.patchProfile, b.requireAuth)

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend's base URL.
func (b *Backend) URL() string { return b.Server.URL }

// CallCount returns how many times the route "METHOD /path" was hit.
func (b *Backend) CallCount(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls[route]
}

// SetLikes replaces the server-side favorites.
func (b *Backend) SetLikes(ids ...int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Likes = slices.Clone(ids)
}

// LikedIDs returns the server-side favorites.
func (b *Backend) LikedIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.Likes)
}

// middleware wraps a route handler.
type middleware func(pattern string, next http.Handler) http.Handler

// counting records each hit under its route pattern.
func (b *Backend) counting(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.Calls[pattern]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// route registers h for pattern behind the counting middleware and extra, outermost first.
func (b *Backend) route(mux *http.ServeMux, pattern string, h http.HandlerFunc, extra ...middleware) {
	var wrapped http.Handler = h
	chain := append([]middleware{b.counting}, extra...)
	for i := len(chain) - 1; i >= 0; i-- {
		wrapped = chain[i](pattern, wrapped)
	}
	mux.Handle(pattern, wrapped)
}

// requireAuth rejects requests without the backend's bearer token.
func (b *Backend) requireAuth(_ string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		authed := r.Header.Get("Authorization") == "Bearer "+b.Token
		b.mu.Unlock()
		if !authed {
			fail(w, http.StatusUnauthorized, "UNAUTHORIZED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func fail(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"success": false, "errorCode": code})
}

func (b *Backend) find(id int64) (SnackFixture, bool) {
	i := slices.IndexFunc(b.Catalog, func(s SnackFixture) bool { return s.ID == id })
	if i < 0 {
		return SnackFixture{ID: id}, false
	}
	return b.Catalog[i], true
}

func (b *Backend) listLikes(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ListStatus != 0 {
		fail(w, b.ListStatus, "LIST_FAILED")
		return
	}

	out := make([]likeWire, 0, len(b.Likes))
	for _, id := range b.Likes {
		s, _ := b.find(id)
		out = append(out, likeWire{SnackID: s.ID, Name: s.Name, Manufacturer: s.Manufacturer, ImageURL: s.ImageURL, SnackCategory: s.SnackCategory})
	}
	ok(w, out)
}

func (b *Backend) toggleLike(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	gate := b.ToggleGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusBadRequest, "BAD_ID")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ToggleStatus != 0 {
		fail(w, b.ToggleStatus, "TOGGLE_FAILED")
		return
	}

	if i := slices.Index(b.Likes, id); i >= 0 {
		b.Likes = slices.Delete(b.Likes, i, i+1)
	} else {
		b.Likes = append(b.Likes, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = 6
	}

	b.mu.Lock()
	var matched []SnackFixture
	for _, s := range b.Catalog {
		if kw := q.Get("keyword"); kw != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(kw)) {
			continue
		}
		if c := q.Get("category"); c != "" && s.SnackCategory != c {
			continue
		}
		if tags := q["hashtags"]; len(tags) > 0 && !slices.ContainsFunc(tags, func(h string) bool { return slices.Contains(s.Hashtags, h) }) {
			continue
		}
		matched = append(matched, s)
	}
	b.mu.Unlock()

	start := min(page*size, len(matched))
	end := min(start+size, len(matched))
	ok(w, map[string]any{
		"content":       matched[start:end],
		"totalPages":    (len(matched) + size - 1) / size,
		"totalElements": len(matched),
	})
}

func (b *Backend) detail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	b.mu.Lock()
	s, found := b.find(id)
	b.mu.Unlock()
	if !found {
		fail(w, http.StatusNotFound, "SNACK_NOT_FOUND")
		return
	}
	ok(w, s)
}

func (b *Backend) recommend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SnackCategories []string `json:"snackCategories"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastCategories = body.SnackCategories

	recs := make([]map[string]any, 0, len(b.Catalog))
	for _, s := range b.Catalog {
		if len(body.SnackCategories) > 0 && !slices.Contains(body.SnackCategories, s.SnackCategory) {
			continue
		}
		recs = append(recs, map[string]any{
			"id": s.ID, "name": s.Name, "manufacturer": s.Manufacturer,
			"snackCategory": s.SnackCategory, "reason": "matches your profile",
		})
	}
	ok(w, map[string]any{"recommendations": recs})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	if body.Email != b.Email || body.Password != b.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
		return
	}
	ok(w, map[string]string{"accessToken": b.Token, "refreshToken": "refresh-" + b.Token})
}

func (b *Backend) signUp(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastSignUp = body
	if body["email"] == b.Email {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "email already registered"})
		return
	}
	ok(w, "welcome")
}

func (b *Backend) getInfo(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ok(w, map[string]any{"username": b.Username, "email": b.Email, "purposes": b.Purposes, "allergies": b.Allergies})
}

func (b *Backend) patchProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string   `json:"name"`
		Email     string   `json:"email"`
		Purposes  []string `json:"purposes"`
		Allergies []string `json:"allergies"`
	}
	raw := map[string]any{}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		fail(w, http.StatusBadRequest, "BAD_BODY")
		return
	}
	data, _ := json.Marshal(raw)
	json.Unmarshal(data, &body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastPatch = raw
	b.Username, b.Email, b.Purposes, b.Allergies = body.Name, body.Email, body.Purposes, body.Allergies
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
