// Package models defines the data model for the snackx client.
//
// Types fall into three groups:
//
// 1. Catalog entries read from the backend
//   - [Snack] : one catalog item as listed by search and recommendation
//   - [SnackDetail] : a catalog item with serving and nutrition facts
//   - [SnackPage] : one page of search results
//   - [Recommendation] : a catalog item chosen for the user, with the reason
//
// 2. Favorites
//   - [FavoriteItem] : one favorited snack with denormalized display fields
//
// 3. Account data
//   - [Profile], [ProfileUpdate], [SignUpForm]
//   - [HealthConcerns] and [Allergies] code tables
//
// Backend field names vary (id/snackId, manufacturer/brand, imageUrl/image).
// Decoding normalizes them at this boundary so the rest of the module only
// sees the canonical fields.
package models
