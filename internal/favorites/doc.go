// Package favorites keeps a local mirror of the user's server-side favorite snacks.
//
// A [Store] is built once with [New] and shared by every view that shows favorites.
// It seeds itself from the local cache, then treats the server list as ground truth:
//
//   - [Store.Refresh] replaces the whole collection with the server's list.
//   - [Store.Toggle] flips membership optimistically, asks the server, and then either
//     re-fetches the list or restores the exact pre-toggle entry.
//
// Every change is written back to the cache under [CacheKey] and announced to subscribers.
// Cache failures are logged at debug level and otherwise ignored.
//
// Only one toggle per snack id may be in flight. A second one is rejected with
// [shared.ErrToggleInFlight] and changes nothing. Toggles for different ids run independently.
// When a refresh and a toggle overlap, whichever finishes last decides the collection.
package favorites
