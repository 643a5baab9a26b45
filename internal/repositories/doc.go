// Package repositories implements SQLite persistence for client-side local state.
//
// All state lives in the local_state key-value table as text values, most of them JSON.
//
// Key Implementations:
//   - [StateRepository] : raw key-value access plus JSON helpers
//   - [SessionRepository] : access and refresh tokens, exposed as an [oauth2.TokenSource]
//   - [ProfileCache] : cached health concern and allergy codes for offline reuse
//
// The well-known keys (accessToken, refreshToken, favSnacks, healthConcerns, allergies,
// login_email, reco_cats) are declared as constants so no component invents its own spelling.
package repositories
