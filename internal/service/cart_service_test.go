package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/apitest"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type fixture struct {
	srv     *apitest.Server
	client  *api.Client
	session *SessionStore
	cart    *CartStore
	board   *NoticeBoard
	pub     *recordingPublisher
	user    entity.User
	product entity.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer(t)
	client := api.NewClient(srv.BaseURL())
	pub := &recordingPublisher{}
	session := NewSessionStore(nil, pub)
	board := NewNoticeBoard()

	return &fixture{
		srv:     srv,
		client:  client,
		session: session,
		cart:    NewCartStore(session, client.Carts, board, pub),
		board:   board,
		pub:     pub,
		user:    srv.SeedUser(entity.User{Username: "ann", Email: "ann@x.io"}, "secret1"),
		product: srv.SeedProduct(entity.Product{Name: "Mug", Price: decimal.RequireFromString("19.99"), Category: "home", StockAvailable: 10}),
	}
}

func lastNotice(t *testing.T, b *NoticeBoard) Notice {
	t.Helper()
	notices := b.Drain()
	if len(notices) == 0 {
		t.Fatalf("expected a notice")
	}
	return notices[len(notices)-1]
}

func TestAddToCartWithoutSession(t *testing.T) {
	f := newFixture(t)

	err := f.cart.AddToCart(context.Background(), f.product.ID, 1)
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if n := f.srv.TotalCalls(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
	if len(f.cart.Items()) != 0 {
		t.Fatalf("expected empty snapshot")
	}
	if n := lastNotice(t, f.board); n.Title != "Login Required" || n.Variant != VariantDestructive {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestAddToCartRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Login(ctx, f.user); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.cart.AddToCart(ctx, f.product.ID, 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	items := f.cart.Items()
	if len(items) != 1 || items[0].Quantity != 2 || items[0].Product.ID != f.product.ID {
		t.Fatalf("unexpected snapshot %+v", items)
	}
	if got := f.cart.Total(); !got.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("expected total 39.98, got %s", got)
	}
	if n := lastNotice(t, f.board); n.Title != "Added to Cart" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestAddToCartQuantityDefaultsToOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)

	if err := f.cart.AddToCart(ctx, f.product.ID, 0); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if items := f.cart.Items(); len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %+v", items)
	}
}

func TestFailedMutationKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 1)
	f.board.Drain()
	before := f.srv.Calls(http.MethodGet, "/getcartsofuser/:userId")

	err := f.cart.AddToCart(ctx, f.product.ID, 50)
	if err == nil {
		t.Fatalf("expected insufficient stock error")
	}
	if got := f.srv.Calls(http.MethodGet, "/getcartsofuser/:userId"); got != before {
		t.Fatalf("failed mutation must not refresh (%d -> %d)", before, got)
	}
	if items := f.cart.Items(); len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("snapshot changed after failure: %+v", items)
	}
	if n := lastNotice(t, f.board); n.Title != "Error" || n.Description != "Insufficient stock" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 1)
	f.board.Drain()

	line := f.cart.Items()[0]
	if err := f.cart.UpdateQuantity(ctx, line.ID, 3); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if got := f.cart.Items()[0].Quantity; got != 3 {
		t.Fatalf("expected quantity 3, got %d", got)
	}
	if n := f.board.Drain(); len(n) != 0 {
		t.Fatalf("quantity change should be silent, got %+v", n)
	}
}

func TestUpdateQuantityFailureFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	f.srv.Fail(http.MethodPut, "/updatecart", http.StatusInternalServerError, "")

	if err := f.cart.UpdateQuantity(ctx, "missing", 2); err == nil {
		t.Fatalf("expected error")
	}
	if n := lastNotice(t, f.board); n.Description != "Failed to update cart item" {
		t.Fatalf("expected fallback description, got %+v", n)
	}
}

func TestRemoveItemTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 1)
	line := f.cart.Items()[0]
	f.board.Drain()

	if err := f.cart.RemoveItem(ctx, line.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if n := lastNotice(t, f.board); n.Title != "Removed from Cart" {
		t.Fatalf("unexpected notice %+v", n)
	}

	if err := f.cart.RemoveItem(ctx, line.ID); err == nil {
		t.Fatalf("expected second remove to fail")
	}
	if n := lastNotice(t, f.board); n.Variant != VariantDestructive {
		t.Fatalf("expected failure notice, got %+v", n)
	}
	if len(f.cart.Items()) != 0 {
		t.Fatalf("snapshot should reflect server state")
	}
}

func TestLogoutEmptiesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 1)

	var last entity.CartSnapshot
	f.cart.OnChange(func(s entity.CartSnapshot) { last = s })

	if err := f.session.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !f.cart.Snapshot().Empty() || !last.Empty() {
		t.Fatalf("expected empty cart after logout")
	}
	if !f.cart.Total().IsZero() {
		t.Fatalf("expected zero total")
	}
}

func TestLoginLoadsExistingCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 2)
	_ = f.session.Logout(ctx)

	if err := f.session.Login(ctx, f.user); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if items := f.cart.Items(); len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected server cart after login, got %+v", items)
	}
}

func TestRefreshFailureEmptiesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 1)

	f.srv.Fail(http.MethodGet, "/getcartsofuser", http.StatusInternalServerError, "boom")
	if err := f.cart.Refresh(ctx); err == nil {
		t.Fatalf("expected refresh error")
	}
	if len(f.cart.Items()) != 0 {
		t.Fatalf("expected empty snapshot after failed fetch")
	}
}

func TestClearIsLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.session.Login(ctx, f.user)
	_ = f.cart.AddToCart(ctx, f.product.ID, 1)

	f.cart.Clear()
	if len(f.cart.Items()) != 0 {
		t.Fatalf("expected empty snapshot")
	}
	if f.srv.CartLines(f.user.ID) != 1 {
		t.Fatalf("Clear must not touch the server cart")
	}
}

// gatedBackend holds cart fetches for one user until release is closed.
type gatedBackend struct {
	CartBackend
	userID  string
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedBackend(inner CartBackend, userID string) *gatedBackend {
	return &gatedBackend{
		CartBackend: inner,
		userID:      userID,
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
}

func (g *gatedBackend) ForUser(ctx context.Context, userID string) (*api.Response, error) {
	if userID == g.userID && g.armed.CompareAndSwap(true, false) {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.CartBackend.ForUser(ctx, userID)
}

func newGatedFixture(t *testing.T) (*fixture, *gatedBackend) {
	t.Helper()
	f := newFixture(t)
	gate := newGatedBackend(f.client.Carts, f.user.ID)
	f.session = NewSessionStore(nil, nil)
	f.cart = NewCartStore(f.session, gate, f.board, nil)
	return f, gate
}

func TestSwitchingUsersKeepsOnlyNewLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.srv.SeedUser(entity.User{Username: "bob", Email: "bob@x.io"}, "secret1")
	lamp := f.srv.SeedProduct(entity.Product{Name: "Lamp", Price: decimal.RequireFromString("7.25"), Category: "home", StockAvailable: 10})
	if _, err := f.client.Carts.Add(ctx, other.ID, lamp.ID, 3); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	_ = f.session.Login(ctx, f.user)
	if err := f.cart.AddToCart(ctx, f.product.ID, 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	if err := f.session.Login(ctx, other); err != nil {
		t.Fatalf("Login: %v", err)
	}
	snap := f.cart.Snapshot()
	if snap.UserID != other.ID || len(snap.Items) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if line := snap.Items[0]; line.Product.ID != lamp.ID || line.Quantity != 3 {
		t.Fatalf("expected only bob's line, got %+v", line)
	}
	if !snap.Total().Equal(decimal.RequireFromString("21.75")) {
		t.Fatalf("total = %s", snap.Total())
	}
}

func TestRefreshForPreviousUserIsDropped(t *testing.T) {
	f, gate := newGatedFixture(t)
	ctx := context.Background()
	other := f.srv.SeedUser(entity.User{Username: "bob", Email: "bob@x.io"}, "secret1")
	if _, err := f.client.Carts.Add(ctx, f.user.ID, f.product.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	_ = f.session.Login(ctx, f.user)

	gate.armed.Store(true)
	done := make(chan error, 1)
	go func() { done <- f.cart.Refresh(ctx) }()
	<-gate.entered

	if err := f.session.Login(ctx, other); err != nil {
		t.Fatalf("Login: %v", err)
	}
	close(gate.release)
	if err := <-done; err != nil {
		t.Fatalf("stale refresh should be dropped quietly, got %v", err)
	}

	snap := f.cart.Snapshot()
	if snap.UserID != other.ID || !snap.Empty() {
		t.Fatalf("stale lines leaked into the new session: %+v", snap)
	}
}

func TestRefreshInFlightDuringLogout(t *testing.T) {
	f, gate := newGatedFixture(t)
	ctx := context.Background()
	if _, err := f.client.Carts.Add(ctx, f.user.ID, f.product.ID, 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	_ = f.session.Login(ctx, f.user)
	if len(f.cart.Items()) != 1 {
		t.Fatalf("expected seeded line after login")
	}

	gate.armed.Store(true)
	done := make(chan error, 1)
	go func() { done <- f.cart.Refresh(ctx) }()
	<-gate.entered

	_ = f.session.Logout(ctx)
	close(gate.release)
	<-done

	if !f.cart.Snapshot().Empty() {
		t.Fatalf("expected empty cart without a session")
	}
}

func TestConcurrentRefreshAndLogoutEndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.client.Carts.Add(ctx, f.user.ID, f.product.ID, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	for i := 0; i < 50; i++ {
		_ = f.session.Login(ctx, f.user)
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = f.cart.Refresh(ctx)
			}()
		}
		time.Sleep(time.Millisecond)
		_ = f.session.Logout(ctx)
		wg.Wait()

		if !f.cart.Snapshot().Empty() {
			t.Fatalf("iteration %d: cart holds lines after logout", i)
		}
	}
}
