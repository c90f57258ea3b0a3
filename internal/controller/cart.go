package controller

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// CartView is what the cart page renders.
type CartView struct {
	Items []entity.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int               `json:"count"`
}

func NewCartView(snap entity.CartSnapshot) CartView {
	items := snap.Items
	if items == nil {
		items = []entity.CartItem{}
	}
	return CartView{Items: items, Total: snap.Total().Round(2), Count: snap.Count()}
}

type CartPage struct {
	cart *service.CartStore
}

func NewCartPage(cart *service.CartStore) *CartPage {
	return &CartPage{cart: cart}
}

func (p *CartPage) View() CartView {
	return NewCartView(p.cart.Snapshot())
}

// Load refreshes from the server before rendering.
func (p *CartPage) Load(ctx context.Context) (CartView, error) {
	err := p.cart.Refresh(ctx)
	return p.View(), err
}

// ChangeQuantity ignores quantities below one and, when the line's stock is
// known, above the available stock. Ignored changes make no call.
func (p *CartPage) ChangeQuantity(ctx context.Context, cartItemID string, quantity int) error {
	if quantity < 1 {
		return nil
	}
	if line, ok := p.cart.Snapshot().Find(cartItemID); ok {
		if stock := line.Product.StockAvailable; stock > 0 && quantity > stock {
			slog.Debug("Ignoring quantity above stock", "cart_item_id", cartItemID, "quantity", quantity, "stock", stock)
			return nil
		}
	}
	return p.cart.UpdateQuantity(ctx, cartItemID, quantity)
}

func (p *CartPage) Remove(ctx context.Context, cartItemID string) error {
	return p.cart.RemoveItem(ctx, cartItemID)
}
