package repositories

import (
	"github.com/desertthunder/snackx/internal/models"
)

// ProfileCache keeps the user's health concern and allergy codes locally
// so recommendation views can use them without a profile round trip.
type ProfileCache struct {
	state *StateRepository
}

// NewProfileCache creates a new [ProfileCache] backed by state.
func NewProfileCache(state *StateRepository) *ProfileCache {
	return &ProfileCache{state: state}
}

// Store caches the codes of p. Nil lists are stored as empty arrays.
func (c *ProfileCache) Store(p models.Profile) error {
	purposes, allergies := p.Purposes, p.Allergies
	if purposes == nil {
		purposes = []string{}
	}
	if allergies == nil {
		allergies = []string{}
	}

	if err := c.state.SetJSON(KeyHealthConcerns, purposes); err != nil {
		return err
	}
	return c.state.SetJSON(KeyAllergies, allergies)
}

// Load returns the cached codes. Missing keys yield empty lists.
func (c *ProfileCache) Load() (purposes, allergies []string, err error) {
	purposes, allergies = []string{}, []string{}
	if _, err := c.state.GetJSON(KeyHealthConcerns, &purposes); err != nil {
		return nil, nil, err
	}
	if _, err := c.state.GetJSON(KeyAllergies, &allergies); err != nil {
		return nil, nil, err
	}
	return purposes, allergies, nil
}

// Clear drops the cached codes.
func (c *ProfileCache) Clear() error {
	return c.state.Delete(KeyHealthConcerns, KeyAllergies)
}
