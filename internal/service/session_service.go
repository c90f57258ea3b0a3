package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// SessionListener is told about every change of the held user. user is nil
// after logout.
type SessionListener func(ctx context.Context, user *entity.User)

// SessionStore is the single source of truth for who is logged in. It makes
// no network calls; callers authenticate through the API client first.
type SessionStore struct {
	// transition serializes Init, Login and Logout so the held user, the
	// persisted copy and listener notifications all change in one order.
	transition sync.Mutex

	mu        sync.RWMutex
	user      *entity.User
	repo      repository.SessionRepository
	publisher messaging.Publisher
	listeners []SessionListener
}

func NewSessionStore(repo repository.SessionRepository, publisher messaging.Publisher) *SessionStore {
	if repo == nil {
		repo = repository.NewMemory()
	}
	if publisher == nil {
		publisher = messaging.Discard{}
	}
	return &SessionStore{repo: repo, publisher: publisher}
}

// OnChange registers fn to run after every Login and Logout, and after Init
// restores a user. fn must not call Login or Logout.
func (s *SessionStore) OnChange(fn SessionListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Init hydrates the store from the persisted value. An unreadable value is
// logged and treated as no session.
func (s *SessionStore) Init(ctx context.Context) {
	s.transition.Lock()
	defer s.transition.Unlock()

	user, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNoSession) {
			slog.Warn("Discarding unreadable session", "err", err)
		}
		return
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	slog.Info("Session restored", "user_id", user.ID, "admin", user.IsAdmin)
	s.changed(ctx, user)
}

// Login unconditionally replaces the held user and persists it. It is also
// how a profile update is reconciled into the session.
func (s *SessionStore) Login(ctx context.Context, user entity.User) error {
	s.transition.Lock()
	defer s.transition.Unlock()

	held := user
	s.mu.Lock()
	s.user = &held
	s.mu.Unlock()

	slog.Info("Session: login", "user_id", user.ID, "admin", user.IsAdmin)
	persistErr := s.repo.Save(ctx, user)
	if persistErr != nil {
		slog.Error("Failed to persist session", "err", persistErr)
	}

	s.changed(ctx, &held)
	if persistErr != nil {
		return fmt.Errorf("failed to persist session: %w", persistErr)
	}
	return nil
}

// Logout clears the held user and its persisted copy.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.mu.Lock()
	prev := s.user
	s.user = nil
	s.mu.Unlock()

	if prev != nil {
		slog.Info("Session: logout", "user_id", prev.ID)
	}
	persistErr := s.repo.Clear(ctx)
	if persistErr != nil {
		slog.Error("Failed to clear persisted session", "err", persistErr)
	}

	s.changed(ctx, nil)
	if persistErr != nil {
		return fmt.Errorf("failed to clear session: %w", persistErr)
	}
	return nil
}

// Current returns a copy of the held user, or nil.
func (s *SessionStore) Current() *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *SessionStore) LoggedIn() bool {
	return s.Current() != nil
}

// IsAdmin is true iff a user is held and carries the admin flag.
func (s *SessionStore) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

func (s *SessionStore) changed(ctx context.Context, user *entity.User) {
	s.mu.RLock()
	listeners := append([]SessionListener{}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, user)
	}

	event := entity.SessionChanged{ChangedAt: time.Now().UTC()}
	if user != nil {
		event.UserID = user.ID
		event.IsAdmin = user.IsAdmin
	}
	if err := s.publisher.PublishEvent(ctx, event.UserID, event); err != nil {
		slog.Error("Failed to publish SessionChanged", "err", err)
	}
}
