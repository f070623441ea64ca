package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/pkg/querycache"
)

const userStaleTime = 24 * time.Hour

// Namespace is the cache key namespace for user entries.
const Namespace = "users"

// UserKey is the cache key for one user record.
func UserKey(id UserID) querycache.Key {
	return querycache.NewKey(Namespace, "byId", id.String())
}

// Remote is the slice of the user API the service needs.
type Remote interface {
	Login(ctx context.Context, username, password string) (User, error)
	FetchUser(ctx context.Context, id UserID) (User, error)
}

// Service manages the session and serves user records out of the cache.
type Service struct {
	remote  Remote
	cache   *querycache.Cache
	session *SessionStore
	logger  *slog.Logger
}

func NewService(remote Remote, cache *querycache.Cache, session *SessionStore, logger *slog.Logger) *Service {
	return &Service{
		remote:  remote,
		cache:   cache,
		session: session,
		logger:  logger.With("component", "users"),
	}
}

// CurrentUserID returns the persisted session identity, if any.
func (s *Service) CurrentUserID() (UserID, bool) {
	return s.session.UserID()
}

// Login authenticates against the remote API. On success the session marker
// is persisted and the user record is primed into the cache, so the first
// profile read after login is free. On failure the existing session, if any,
// is left untouched.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	user, err := s.remote.Login(ctx, username, password)
	if err != nil {
		return User{}, err
	}
	if err := s.session.Set(user.ID); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
	querycache.SetData(s.cache, UserKey(user.ID), func(User, bool) User { return user })
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return user, nil
}

// Logout drops the persisted session marker.
func (s *Service) Logout() error {
	return s.session.Clear()
}

// User returns the user record for id, cached for a day.
func (s *Service) User(ctx context.Context, id UserID) (User, error) {
	return querycache.Fetch(ctx, s.cache, UserKey(id), func(ctx context.Context) (User, error) {
		return s.remote.FetchUser(ctx, id)
	}, querycache.Options{StaleTime: userStaleTime})
}

// CurrentUser resolves the session to a full user record.
func (s *Service) CurrentUser(ctx context.Context) (User, error) {
	id, ok := s.session.UserID()
	if !ok {
		return User{}, ErrNoSession
	}
	return s.User(ctx, id)
}

// Prefetch warms the user record for a restored session without blocking.
func (s *Service) Prefetch(ctx context.Context, id UserID) {
	querycache.Prefetch(ctx, s.cache, UserKey(id), func(ctx context.Context) (User, error) {
		return s.remote.FetchUser(ctx, id)
	}, querycache.Options{StaleTime: userStaleTime})
}
