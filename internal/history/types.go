// Package history persists the append-only observation log the engine learns from.
package history

import (
	"errors"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region store
// Store is an append-only, oldest-first sequence of observations.
type Store interface {
	// Load returns every persisted entry. Missing or corrupt state yields an
	// empty slice; corruption is reported on the logger, never returned.
	Load() []home.HistoryEntry
	// Append durably adds one entry to the end of the sequence.
	Append(e home.HistoryEntry) error
	Close() error
}

// #endregion store

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("history store closed")

// #region helpers
// Count returns the number of persisted entries.
func Count(s Store) int {
	return len(s.Load())
}

// Tail returns the newest n entries, oldest first. n <= 0 returns everything.
func Tail(s Store, n int) []home.HistoryEntry {
	return Window(s.Load(), n)
}

// Window returns the last n entries of entries. n <= 0 returns entries unchanged.
func Window(entries []home.HistoryEntry, n int) []home.HistoryEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

// #endregion helpers
