package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type sessionRepository struct {
	db   *sql.DB
	slot string
}

// NewSessionRepository persists the session in storefront_sessions under
// slot, so several storefront instances can share one database.
func NewSessionRepository(db *sql.DB, slot string) repository.SessionRepository {
	if slot == "" {
		slot = "default"
	}
	return &sessionRepository{db: db, slot: slot}
}

func (r *sessionRepository) Load(ctx context.Context) (*entity.User, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, "SELECT payload FROM storefront_sessions WHERE slot = $1", r.slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	var user entity.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &user, nil
}

func (r *sessionRepository) Save(ctx context.Context, user entity.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO storefront_sessions (slot, payload, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (slot) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		r.slot, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM storefront_sessions WHERE slot = $1", r.slot); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
