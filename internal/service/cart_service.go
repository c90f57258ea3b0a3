package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

// CartBackend is the slice of the remote API the cart store needs.
// *api.CartAPI satisfies it.
type CartBackend interface {
	Add(ctx context.Context, userID, productID string, quantity int) (*api.Response, error)
	ForUser(ctx context.Context, userID string) (*api.Response, error)
	Update(ctx context.Context, cartItemID string, quantity int) (*api.Response, error)
	Remove(ctx context.Context, cartItemID string) (*api.Response, error)
}

// CartStore keeps the current session's cart snapshot consistent with the
// server. Every successful mutation is followed by a full refresh; a failed
// mutation returns before refreshing and leaves the snapshot untouched.
type CartStore struct {
	session   *SessionStore
	backend   CartBackend
	notifier  Notifier
	publisher messaging.Publisher

	mu        sync.RWMutex
	snapshot  entity.CartSnapshot
	listeners []func(entity.CartSnapshot)
}

// NewCartStore creates a CartStore and subscribes it to session changes.
func NewCartStore(session *SessionStore, backend CartBackend, notifier Notifier, publisher messaging.Publisher) *CartStore {
	if publisher == nil {
		publisher = messaging.Discard{}
	}
	c := &CartStore{
		session:   session,
		backend:   backend,
		notifier:  notifier,
		publisher: publisher,
	}
	session.OnChange(func(ctx context.Context, _ *entity.User) {
		if err := c.Refresh(ctx); err != nil {
			slog.Error("Cart refresh after session change failed", "err", err)
		}
	})
	return c
}

// OnChange registers fn to receive every replaced snapshot.
func (c *CartStore) OnChange(fn func(entity.CartSnapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Refresh replaces the snapshot with the server's view of the current
// session's cart. Without a session the snapshot is emptied with no network
// call. A failed fetch also empties it, so the snapshot is never stale.
func (c *CartStore) Refresh(ctx context.Context) error {
	user := c.session.Current()
	if user == nil {
		c.replace(entity.NewCartSnapshot("", nil))
		return nil
	}

	items, err := c.fetch(ctx, user.ID)
	snap := entity.NewCartSnapshot(user.ID, items)
	if !c.replaceIfCurrent(user.ID, snap) {
		// The session moved on while the fetch was in flight; the newer
		// session's own refresh owns the snapshot.
		slog.Debug("Dropping cart fetched for previous session", "user_id", user.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch cart: %w", err)
	}
	c.publish(ctx, user.ID, entity.CartRefreshed{UserID: user.ID, Lines: len(snap.Items), Total: snap.Total()})
	return nil
}

func (c *CartStore) fetch(ctx context.Context, userID string) ([]entity.CartItem, error) {
	resp, err := c.backend.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	env, err := resp.Envelope()
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

// AddToCart adds quantity units of productID (one when quantity < 1).
func (c *CartStore) AddToCart(ctx context.Context, productID string, quantity int) error {
	user := c.session.Current()
	if user == nil {
		c.notify(Failure("Login Required", "Please login to add items to cart"))
		return ErrNotLoggedIn
	}
	if quantity < 1 {
		quantity = 1
	}

	if _, err := c.backend.Add(ctx, user.ID, productID, quantity); err != nil {
		slog.Error("Failed to add item to cart", "user_id", user.ID, "product_id", productID, "err", err)
		c.notify(Failure("Error", api.Message(err, "Failed to add item to cart")))
		return err
	}
	c.refreshAfterMutation(ctx)

	c.notify(Info("Added to Cart", "Item has been added to your cart"))
	c.publish(ctx, user.ID, entity.ItemAddedToCart{UserID: user.ID, ProductID: productID, Quantity: quantity})
	return nil
}

// UpdateQuantity sets a line's quantity. Bounds are checked by the server;
// callers reject quantities below one before calling.
func (c *CartStore) UpdateQuantity(ctx context.Context, cartItemID string, quantity int) error {
	if _, err := c.backend.Update(ctx, cartItemID, quantity); err != nil {
		slog.Error("Failed to update cart item", "cart_item_id", cartItemID, "quantity", quantity, "err", err)
		c.notify(Failure("Error", api.Message(err, "Failed to update cart item")))
		return err
	}
	c.refreshAfterMutation(ctx)

	c.publish(ctx, c.userID(), entity.CartItemUpdated{UserID: c.userID(), CartItemID: cartItemID, Quantity: quantity})
	return nil
}

// RemoveItem deletes a cart line.
func (c *CartStore) RemoveItem(ctx context.Context, cartItemID string) error {
	if _, err := c.backend.Remove(ctx, cartItemID); err != nil {
		slog.Error("Failed to remove cart item", "cart_item_id", cartItemID, "err", err)
		c.notify(Failure("Error", api.Message(err, "Failed to remove item from cart")))
		return err
	}
	c.refreshAfterMutation(ctx)

	c.notify(Info("Removed from Cart", "Item has been removed from your cart"))
	c.publish(ctx, c.userID(), entity.ItemRemovedFromCart{UserID: c.userID(), CartItemID: cartItemID})
	return nil
}

// Clear empties the in-memory snapshot without contacting the server. It is
// used right after checkout, which is assumed to empty the server-side cart.
func (c *CartStore) Clear() {
	c.replace(entity.NewCartSnapshot(c.userID(), nil))
}

// Snapshot returns the current snapshot.
func (c *CartStore) Snapshot() entity.CartSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return entity.NewCartSnapshot(c.snapshot.UserID, c.snapshot.Items)
}

func (c *CartStore) Items() []entity.CartItem {
	return c.Snapshot().Items
}

// Total is Σ price × quantity over the snapshot.
func (c *CartStore) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Total()
}

func (c *CartStore) refreshAfterMutation(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		slog.Error("Cart refresh after mutation failed", "err", err)
	}
}

func (c *CartStore) replace(snap entity.CartSnapshot) {
	c.mu.Lock()
	c.snapshot = snap
	listeners := append([]func(entity.CartSnapshot){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// replaceIfCurrent installs snap only while userID still holds the session.
// The check and the write happen under c.mu, so a logout's empty replace
// always lands after it.
func (c *CartStore) replaceIfCurrent(userID string, snap entity.CartSnapshot) bool {
	c.mu.Lock()
	if cur := c.session.Current(); cur == nil || cur.ID != userID {
		c.mu.Unlock()
		return false
	}
	c.snapshot = snap
	listeners := append([]func(entity.CartSnapshot){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return true
}

func (c *CartStore) userID() string {
	if u := c.session.Current(); u != nil {
		return u.ID
	}
	return ""
}

func (c *CartStore) notify(n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func (c *CartStore) publish(ctx context.Context, key string, event entity.Event) {
	if err := c.publisher.PublishEvent(ctx, key, event); err != nil {
		slog.Error("Failed to publish event", "type", event.EventType(), "err", err)
	}
}
