package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event represents a storefront activity event.
type Event interface {
	EventType() string
}

// SessionChanged is emitted when the held identity changes. UserID is empty
// on logout.
type SessionChanged struct {
	UserID    string    `json:"user_id"`
	IsAdmin   bool      `json:"is_admin"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e SessionChanged) EventType() string { return "SessionChanged" }

// CartRefreshed is emitted after the snapshot has been replaced.
type CartRefreshed struct {
	UserID string          `json:"user_id"`
	Lines  int             `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

func (e CartRefreshed) EventType() string { return "CartRefreshed" }

// ItemAddedToCart is emitted when an add-to-cart call succeeded.
type ItemAddedToCart struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (e ItemAddedToCart) EventType() string { return "ItemAddedToCart" }

// CartItemUpdated is emitted when a line quantity was changed.
type CartItemUpdated struct {
	UserID     string `json:"user_id"`
	CartItemID string `json:"cart_item_id"`
	Quantity   int    `json:"quantity"`
}

func (e CartItemUpdated) EventType() string { return "CartItemUpdated" }

// ItemRemovedFromCart is emitted when a line was deleted.
type ItemRemovedFromCart struct {
	UserID     string `json:"user_id"`
	CartItemID string `json:"cart_item_id"`
}

func (e ItemRemovedFromCart) EventType() string { return "ItemRemovedFromCart" }

// OrderPlaced is emitted after checkout created an order.
type OrderPlaced struct {
	UserID      string          `json:"user_id"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	Lines       int             `json:"lines"`
	CartTotal   decimal.Decimal `json:"cart_total"`
	PlacedAt    time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderStatusChanged is emitted by the admin orders page.
type OrderStatusChanged struct {
	OrderID      string      `json:"order_id"`
	Status       OrderStatus `json:"status"`
	DeliveryDate *time.Time  `json:"delivery_date,omitempty"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }
