package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// ErrNoSession is returned by Load when nothing has been persisted.
var ErrNoSession = errors.New("no persisted session")

// SessionRepository keeps the logged-in user across process restarts.
type SessionRepository interface {
	// Load returns the persisted user or ErrNoSession.
	Load(ctx context.Context) (*entity.User, error)
	// Save replaces the persisted user.
	Save(ctx context.Context, user entity.User) error
	// Clear removes the persisted user. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Memory is an in-process SessionRepository; nothing survives a restart.
type Memory struct {
	mu   sync.Mutex
	user *entity.User
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(context.Context) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, ErrNoSession
	}
	u := *m.user
	return &u, nil
}

func (m *Memory) Save(_ context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}
