package controller

import (
	"context"
	"fmt"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// FeaturedCount is how many products the home page shows.
const FeaturedCount = 4

type Catalog struct {
	client *api.Client
	cart   *service.CartStore
}

func NewCatalog(client *api.Client, cart *service.CartStore) *Catalog {
	return &Catalog{client: client, cart: cart}
}

// Products lists the whole catalog. A missing collection is an empty list.
func (c *Catalog) Products(ctx context.Context) ([]entity.Product, error) {
	env, err := envelopeOf(c.client.Products.List(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return nonNilProducts(env.Products), nil
}

// Featured returns the first FeaturedCount products in API order.
func (c *Catalog) Featured(ctx context.Context) ([]entity.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) > FeaturedCount {
		products = products[:FeaturedCount]
	}
	return products, nil
}

func (c *Catalog) Product(ctx context.Context, id string) (*entity.Product, error) {
	env, err := envelopeOf(c.client.Products.Get(ctx, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	if env.Product == nil {
		return nil, &api.Error{StatusCode: http.StatusNotFound, Message: "Product not found"}
	}
	return env.Product, nil
}

// AddToCart adds a single unit from a product card.
func (c *Catalog) AddToCart(ctx context.Context, productID string) error {
	return c.cart.AddToCart(ctx, productID, 1)
}
