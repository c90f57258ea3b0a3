package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Runs against a live database; set TEST_DATABASE_URL to enable.
func TestSessionRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := InitDB(ctx, dsn)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db, "test-"+t.Name())
	_ = repo.Clear(ctx)

	if _, err := repo.Load(ctx); !errors.Is(err, repository.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := repo.Save(ctx, entity.User{ID: "u1", Username: "ann"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, entity.User{ID: "u1", Username: "annie"}); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	u, err := repo.Load(ctx)
	if err != nil || u.Username != "annie" {
		t.Fatalf("Load: %+v %v", u, err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, got %v %v", entries, err)
	}
}
