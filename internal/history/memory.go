package history

import (
	"sync"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// MemoryStore is a process-local Store used by replays and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []home.HistoryEntry
	closed  bool
}

// NewMemoryStore returns a store seeded with a copy of entries.
func NewMemoryStore(entries ...home.HistoryEntry) *MemoryStore {
	return &MemoryStore{entries: append([]home.HistoryEntry(nil), entries...)}
}

func (s *MemoryStore) Load() []home.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]home.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemoryStore) Append(e home.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
