package controller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// ErrEmptyCart is returned when checking out with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutForm is what the shopper submits. An empty payment mode means
// cash on delivery.
type CheckoutForm struct {
	ShippingAddress string             `json:"shippingaddress" validate:"required"`
	PaymentMode     entity.PaymentMode `json:"paymentmode" validate:"required,oneof=cod online"`
}

type Checkout struct {
	client    *api.Client
	session   *service.SessionStore
	cart      *service.CartStore
	notifier  service.Notifier
	publisher messaging.Publisher
	now       func() time.Time
}

func NewCheckout(client *api.Client, session *service.SessionStore, cart *service.CartStore, notifier service.Notifier, publisher messaging.Publisher) *Checkout {
	if publisher == nil {
		publisher = messaging.Discard{}
	}
	return &Checkout{
		client:    client,
		session:   session,
		cart:      cart,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// PlaceOrder submits the current cart as a pending order. The server builds
// the order lines from its own view of the cart; on success the local
// snapshot is cleared without another fetch.
func (c *Checkout) PlaceOrder(ctx context.Context, form CheckoutForm) (*entity.Order, error) {
	user := c.session.Current()
	if user == nil {
		notify(c.notifier, service.Failure("Authentication Required", "Please login to place an order"))
		return nil, service.ErrNotLoggedIn
	}
	snap := c.cart.Snapshot()
	if snap.Empty() {
		notify(c.notifier, service.Failure("Empty Cart", "Please add items to your cart before checkout"))
		return nil, ErrEmptyCart
	}
	if form.PaymentMode == "" {
		form.PaymentMode = entity.PaymentCashOnDelivery
	}
	if err := check(form); err != nil {
		return nil, err
	}

	env, err := envelopeOf(c.client.Orders.Create(ctx, entity.NewOrder{
		UserID:          user.ID,
		PaymentMode:     form.PaymentMode,
		ShippingAddress: form.ShippingAddress,
		Status:          entity.OrderPending,
	}))
	if err != nil {
		slog.Error("Failed to place order", "user_id", user.ID, "err", err)
		notify(c.notifier, service.Failure("Order Failed", api.Message(err, "Something went wrong while placing your order")))
		return nil, err
	}

	c.cart.Clear()
	notify(c.notifier, service.Info("Order Placed Successfully!", "Thank you for your order. You will receive a confirmation email shortly."))

	event := entity.OrderPlaced{
		UserID:      user.ID,
		PaymentMode: form.PaymentMode,
		Lines:       len(snap.Items),
		CartTotal:   snap.Total(),
		PlacedAt:    c.now().UTC(),
	}
	if err := c.publisher.PublishEvent(ctx, user.ID, event); err != nil {
		slog.Error("Failed to publish OrderPlaced", "err", err)
	}
	slog.Info("Checkout: order placed", "user_id", user.ID, "lines", event.Lines, "total", event.CartTotal)
	return env.Order, nil
}
