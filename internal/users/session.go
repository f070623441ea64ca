package users

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/abgdnv/storefront/pkg/storage"
)

// sessionKey is the storage key for the persisted user id. The raw numeric
// id string is the whole session marker; the demo API has no server-side
// session to pair it with.
const sessionKey = "userId"

// SessionStore persists the authentication marker across restarts.
type SessionStore struct {
	mu      sync.Mutex
	storage storage.Store
	logger  *slog.Logger
}

func NewSessionStore(st storage.Store, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		storage: st,
		logger:  logger.With("component", "session"),
	}
}

// UserID returns the persisted user id, if a session exists. A corrupt
// value is treated as no session.
func (s *SessionStore) UserID() (UserID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok, err := s.storage.Get(sessionKey)
	if err != nil {
		s.logger.Warn("failed to read session from storage", "error", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	var idStr string
	if err := json.Unmarshal(raw, &idStr); err != nil {
		s.logger.Warn("discarding malformed session value", "error", err)
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		s.logger.Warn("discarding malformed session id", "value", idStr)
		return 0, false
	}
	return UserID(id), true
}

// Set persists the user id as the current session.
func (s *SessionStore) Set(id UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(id.String())
	if err != nil {
		return err
	}
	return s.storage.Set(sessionKey, raw)
}

// Clear removes the persisted session. Only the marker is dropped; cached
// user data stays until the cache collects it.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.Delete(sessionKey)
}
