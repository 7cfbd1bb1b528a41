package corpus

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Store holds the current corpus snapshot behind an atomic pointer. Readers
// grab the pointer once per request and work against that generation even if
// a reload lands mid-request.
type Store struct {
	cur    atomic.Pointer[Snapshot]
	path   string
	logger *slog.Logger
}

// NewStore creates a Store seeded with the given snapshot. path is the
// snapshot file used by Reload; it may be empty when reloads come with an
// explicit path.
func NewStore(initial *Snapshot, path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	st := &Store{path: path, logger: logger}
	st.cur.Store(initial)
	return st
}

// Current returns the active snapshot.
func (st *Store) Current() *Snapshot { return st.cur.Load() }

// Swap installs a new snapshot.
func (st *Store) Swap(s *Snapshot) {
	st.cur.Store(s)
	st.logger.Info("corpus snapshot swapped",
		"projects", s.Len(), "dimension", s.Dimension())
}

// Reload re-reads the snapshot file and swaps it in. The previous snapshot
// stays active if loading fails.
func (st *Store) Reload() error {
	return st.ReloadFrom(st.path)
}

// ReloadFrom loads a snapshot from the given path and swaps it in.
func (st *Store) ReloadFrom(path string) error {
	if path == "" {
		return fmt.Errorf("corpus: reload: no snapshot path configured")
	}
	snap, err := LoadFile(path)
	if err != nil {
		return fmt.Errorf("corpus: reload %s: %w", path, err)
	}
	st.Swap(snap)
	return nil
}
