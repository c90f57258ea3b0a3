package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Admin is the back-office. Every method requires an admin session and
// returns ErrForbidden otherwise. Mutations refetch the affected collection
// and return it.
type Admin struct {
	client    *api.Client
	session   *service.SessionStore
	notifier  service.Notifier
	publisher messaging.Publisher
	now       func() time.Time
}

func NewAdmin(client *api.Client, session *service.SessionStore, notifier service.Notifier, publisher messaging.Publisher) *Admin {
	if publisher == nil {
		publisher = messaging.Discard{}
	}
	return &Admin{
		client:    client,
		session:   session,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// --- products ---

func (a *Admin) Products(ctx context.Context) ([]entity.Product, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	return a.products(ctx)
}

func (a *Admin) products(ctx context.Context) ([]entity.Product, error) {
	env, err := envelopeOf(a.client.Products.List(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return nonNilProducts(env.Products), nil
}

// CreateProduct creates a product owned by the session admin.
func (a *Admin) CreateProduct(ctx context.Context, in entity.ProductInput) ([]entity.Product, error) {
	admin, err := adminOnly(a.session)
	if err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}
	if _, err := a.client.Products.Create(ctx, admin.ID, in); err != nil {
		slog.Error("Failed to create product", "name", in.Name, "err", err)
		notify(a.notifier, service.Failure("Error", api.Message(err, "Something went wrong")))
		return nil, err
	}
	notify(a.notifier, service.Info("Product Created", "New product has been created successfully."))
	return a.products(ctx)
}

func (a *Admin) UpdateProduct(ctx context.Context, id string, in entity.ProductInput) ([]entity.Product, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}
	if _, err := a.client.Products.Update(ctx, id, in); err != nil {
		slog.Error("Failed to update product", "product_id", id, "err", err)
		notify(a.notifier, service.Failure("Error", api.Message(err, "Something went wrong")))
		return nil, err
	}
	notify(a.notifier, service.Info("Product Updated", "Product has been updated successfully."))
	return a.products(ctx)
}

func (a *Admin) DeleteProduct(ctx context.Context, id string) ([]entity.Product, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	if _, err := a.client.Products.Delete(ctx, id); err != nil {
		slog.Error("Failed to delete product", "product_id", id, "err", err)
		notify(a.notifier, service.Failure("Error", api.Message(err, "Failed to delete product")))
		return nil, err
	}
	notify(a.notifier, service.Info("Product Deleted", "Product has been deleted successfully."))
	return a.products(ctx)
}

// --- users ---

func (a *Admin) Users(ctx context.Context) ([]entity.User, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	return a.users(ctx)
}

func (a *Admin) users(ctx context.Context) ([]entity.User, error) {
	env, err := envelopeOf(a.client.Users.List(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return nonNilUsers(env.Users), nil
}

func (a *Admin) DeleteUser(ctx context.Context, id string) ([]entity.User, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	if _, err := a.client.Users.Delete(ctx, id); err != nil {
		slog.Error("Failed to delete user", "user_id", id, "err", err)
		notify(a.notifier, service.Failure("Error", api.Message(err, "Failed to delete user")))
		return nil, err
	}
	notify(a.notifier, service.Info("User Deleted", "User has been deleted successfully."))
	return a.users(ctx)
}

// ToggleBlock acknowledges a block or unblock request. The API has no
// endpoint for it, so nothing is changed remotely.
func (a *Admin) ToggleBlock(ctx context.Context, id string, currentlyBlocked bool) ([]entity.User, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	if currentlyBlocked {
		notify(a.notifier, service.Info("User Unblocked", "User has been unblocked successfully."))
	} else {
		notify(a.notifier, service.Info("User Blocked", "User has been blocked successfully."))
	}
	slog.Info("Admin: block toggled locally", "user_id", id, "blocked", !currentlyBlocked)
	return a.users(ctx)
}

// --- orders ---

// Orders lists all orders, optionally narrowed to one status. "" and "all"
// mean no filter.
func (a *Admin) Orders(ctx context.Context, status string) ([]entity.Order, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	orders, err := a.orders(ctx)
	if err != nil || status == "" || status == "all" {
		return orders, err
	}
	filtered := []entity.Order{}
	for _, o := range orders {
		if string(o.Status) == status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (a *Admin) orders(ctx context.Context) ([]entity.Order, error) {
	env, err := envelopeOf(a.client.Orders.List(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return nonNilOrders(env.Orders), nil
}

// UpdateOrderStatus moves an order to status. Completing an order stamps a
// delivery date DeliveryLeadTime from now.
func (a *Admin) UpdateOrderStatus(ctx context.Context, id string, status entity.OrderStatus) ([]entity.Order, error) {
	if _, err := adminOnly(a.session); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be one of pending completed"}}
	}

	upd := entity.StatusUpdate(status, a.now().UTC())
	if _, err := a.client.Orders.Update(ctx, id, upd); err != nil {
		slog.Error("Failed to update order", "order_id", id, "status", status, "err", err)
		notify(a.notifier, service.Failure("Error", api.Message(err, "Failed to update order")))
		return nil, err
	}
	notify(a.notifier, service.Info("Order Updated", fmt.Sprintf("Order status has been updated to %s.", status)))

	event := entity.OrderStatusChanged{OrderID: id, Status: status, DeliveryDate: upd.DeliveryDate}
	if err := a.publisher.PublishEvent(ctx, id, event); err != nil {
		slog.Error("Failed to publish OrderStatusChanged", "err", err)
	}
	return a.orders(ctx)
}
