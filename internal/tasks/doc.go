// Package tasks orchestrates multi-step catalog operations on top of the services package.
//
// # Catalog Browsing
//
// [Browser] pages through search results. Starting a new load cancels the one still in flight,
// and a response that arrives after a newer load started is discarded with [shared.ErrSuperseded],
// so a slow page 0 can never overwrite page 1.
//
// # Recommendations
//
// [Recommender] asks the backend for snacks matching the user's health profile and remembers
// the categories last used to narrow the request.
//
// # Bulk Detail Fetching
//
// [FetchDetails] loads nutrition details for many snacks with a rate-limited worker pool,
// used when exporting favorites with their nutrition facts.
//
// # Progress Reporting
//
// Long operations report [ProgressUpdate] values on an optional channel.
// Sends use select with default so a slow or absent reader never blocks the work.
package tasks
