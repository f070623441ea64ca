package cart

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/storefront/pkg/storage"
)

// storageKey is the fixed key of the cart snapshot in durable storage.
const storageKey = "shopping_cart"

// maxSnapshotAge is how long a persisted cart survives. Older snapshots are
// discarded wholesale on restore.
const maxSnapshotAge = 30 * 24 * time.Hour

// snapshot is the persisted cart shape. Full lines are stored, quantities
// included, so a reload restores exactly what the user had.
type snapshot struct {
	Lines     []Line    `json:"lines"`
	Timestamp time.Time `json:"timestamp"`
}

// Store owns the authoritative cart lines. Every mutation goes through the
// pure reducer and is then persisted; persistence failures degrade to an
// in-memory cart rather than failing the mutation.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	storage storage.Store
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore restores the cart from durable storage. Expired or malformed
// snapshots yield an empty cart and clear the stored value.
func NewStore(st storage.Store, logger *slog.Logger) *Store {
	s := &Store{
		storage: st,
		logger:  logger.With("component", "cart"),
		now:     time.Now,
	}
	s.lines = s.restore()
	return s
}

// Lines returns a copy of the current cart state.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Dispatch runs one action through the reducer and persists the result.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = Reduce(s.lines, a)
	s.persist()
}

func (s *Store) restore() []Line {
	raw, ok, err := s.storage.Get(storageKey)
	if err != nil {
		s.logger.Warn("failed to load cart from storage", "error", err)
		return []Line{}
	}
	if !ok {
		return []Line{}
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.Warn("discarding malformed cart snapshot", "error", err)
		s.clearStorage()
		return []Line{}
	}
	if s.now().Sub(snap.Timestamp) > maxSnapshotAge {
		s.logger.Info("discarding expired cart snapshot", "stored_at", snap.Timestamp)
		s.clearStorage()
		return []Line{}
	}

	lines := make([]Line, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		if l.ProductID <= 0 || l.Quantity < 1 {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// persist writes the current lines with a timestamp. Caller holds s.mu.
func (s *Store) persist() {
	snap := snapshot{Lines: s.lines, Timestamp: s.now()}
	raw, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("failed to encode cart snapshot", "error", err)
		return
	}
	if err := s.storage.Set(storageKey, raw); err != nil {
		s.logger.Warn("failed to save cart to storage", "error", err)
	}
}

func (s *Store) clearStorage() {
	if err := s.storage.Delete(storageKey); err != nil {
		s.logger.Warn("failed to clear cart storage", "error", err)
	}
}
