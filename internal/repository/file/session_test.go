package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	repo := NewSessionRepository(path)

	if _, err := repo.Load(ctx); !errors.Is(err, repository.ErrNoSession) {
		t.Fatalf("Load on empty store: got %v, want ErrNoSession", err)
	}

	user := entity.User{ID: "u1", Username: "ann", Email: "ann@example.com", IsAdmin: true}
	if err := repo.Save(ctx, user); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != "u1" || !got.IsAdmin || got.Email != user.Email {
		t.Errorf("Load() = %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if _, err := repo.Load(ctx); !errors.Is(err, repository.ErrNoSession) {
		t.Fatalf("Load after Clear: got %v", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSessionRepository(path).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
