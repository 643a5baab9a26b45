// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides three views over the snack catalog:
//  1. [BrowseView] : Search the catalog and page through results
//  2. [DetailView] : Nutrition facts for one snack
//  3. [FavoritesView] : The favorites collection
//
// Hearts are drawn from the favorites store and redrawn whenever it reports a change,
// so an optimistic toggle shows immediately and a rollback un-draws it.
// Store events reach the program through a channel drained by a waiting command, the same way
// progress updates are delivered.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) plus / to search, f to toggle a favorite
// and tab to switch between the catalog and favorites, with contextual help via charmbracelet/bubbles/help.
package ui
