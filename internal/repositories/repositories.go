package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/snackx/internal/shared"
)

// Well-known local state keys.
const (
	KeyAccessToken    = "accessToken"
	KeyRefreshToken   = "refreshToken"
	KeyTokenExpiry    = "accessTokenExpiry"
	KeyFavorites      = "favSnacks"
	KeyHealthConcerns = "healthConcerns"
	KeyAllergies      = "allergies"
	KeyLoginEmail     = "login_email"
	KeyRecoCategories = "reco_cats"
)

// StateRepository reads and writes the local_state key-value table.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new [StateRepository].
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the value stored under key. ok is false when the key is absent.
func (r *StateRepository) Get(key string) (value string, ok bool, err error) {
	err = r.db.QueryRow("SELECT value FROM local_state WHERE key = ?", key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%w: %s: %v", shared.ErrCacheRead, key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (r *StateRepository) Set(key, value string) error {
	query := `
		INSERT INTO local_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrCacheWrite, key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (r *StateRepository) Delete(keys ...string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrCacheWrite, err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec("DELETE FROM local_state WHERE key = ?", key); err != nil {
			return fmt.Errorf("%w: %s: %v", shared.ErrCacheWrite, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit delete: %v", shared.ErrCacheWrite, err)
	}
	return nil
}

// GetJSON decodes the JSON value under key into v.
//
// ok is false when the key is absent. A value that is not valid JSON for v is an [shared.ErrCacheRead].
func (r *StateRepository) GetJSON(key string, v any) (ok bool, err error) {
	raw, ok, err := r.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("%w: %s is not valid JSON: %v", shared.ErrCacheRead, key, err)
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func (r *StateRepository) SetJSON(key string, v any) error {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrCacheWrite, key, err)
	}
	return r.Set(key, string(data))
}
