package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// AuthAPI covers registration and login.
type AuthAPI struct{ c *Client }

func (a *AuthAPI) Register(ctx context.Context, reg entity.Registration) (*Response, error) {
	return a.c.do(ctx, http.MethodPost, "/register", reg)
}

func (a *AuthAPI) Login(ctx context.Context, creds entity.Credentials) (*Response, error) {
	return a.c.do(ctx, http.MethodPost, "/login", creds)
}

// UserAPI covers account administration and profile updates.
type UserAPI struct{ c *Client }

func (u *UserAPI) List(ctx context.Context) (*Response, error) {
	return u.c.do(ctx, http.MethodGet, "/getusers", nil)
}

func (u *UserAPI) GetByEmail(ctx context.Context, email string) (*Response, error) {
	return u.c.do(ctx, http.MethodGet, "/getuserbyemail/"+url.PathEscape(email), nil)
}

func (u *UserAPI) Update(ctx context.Context, id string, upd entity.UserUpdate) (*Response, error) {
	return u.c.do(ctx, http.MethodPut, "/updateuser/"+url.PathEscape(id), upd)
}

func (u *UserAPI) Delete(ctx context.Context, id string) (*Response, error) {
	return u.c.do(ctx, http.MethodDelete, "/deleteuser/"+url.PathEscape(id), nil)
}

// ProductAPI covers the catalog.
type ProductAPI struct{ c *Client }

// Create registers a product; creatorID is the admin issuing the call.
func (p *ProductAPI) Create(ctx context.Context, creatorID string, in entity.ProductInput) (*Response, error) {
	return p.c.do(ctx, http.MethodPost, "/product/"+url.PathEscape(creatorID), in)
}

func (p *ProductAPI) List(ctx context.Context) (*Response, error) {
	return p.c.do(ctx, http.MethodGet, "/product", nil)
}

func (p *ProductAPI) Get(ctx context.Context, id string) (*Response, error) {
	return p.c.do(ctx, http.MethodGet, "/product/"+url.PathEscape(id), nil)
}

func (p *ProductAPI) Update(ctx context.Context, id string, in entity.ProductInput) (*Response, error) {
	return p.c.do(ctx, http.MethodPut, "/product/"+url.PathEscape(id), in)
}

func (p *ProductAPI) Delete(ctx context.Context, id string) (*Response, error) {
	return p.c.do(ctx, http.MethodDelete, "/product/"+url.PathEscape(id), nil)
}

// CartAPI covers cart lines. Quantities travel as path segments.
type CartAPI struct{ c *Client }

// Add puts quantity units of productID into userID's cart. A quantity below
// one is sent as one.
func (ca *CartAPI) Add(ctx context.Context, userID, productID string, quantity int) (*Response, error) {
	if quantity < 1 {
		quantity = 1
	}
	path := fmt.Sprintf("/addtocart/%s/%s/%d", url.PathEscape(userID), url.PathEscape(productID), quantity)
	return ca.c.do(ctx, http.MethodPost, path, nil)
}

func (ca *CartAPI) ForUser(ctx context.Context, userID string) (*Response, error) {
	return ca.c.do(ctx, http.MethodGet, "/getcartsofuser/"+url.PathEscape(userID), nil)
}

func (ca *CartAPI) Update(ctx context.Context, cartItemID string, quantity int) (*Response, error) {
	path := "/updatecart/" + url.PathEscape(cartItemID) + "/" + strconv.Itoa(quantity)
	return ca.c.do(ctx, http.MethodPut, path, nil)
}

func (ca *CartAPI) Remove(ctx context.Context, cartItemID string) (*Response, error) {
	return ca.c.do(ctx, http.MethodDelete, "/deletecart/"+url.PathEscape(cartItemID), nil)
}

// OrderAPI covers order placement and administration.
type OrderAPI struct{ c *Client }

func (o *OrderAPI) Create(ctx context.Context, order entity.NewOrder) (*Response, error) {
	return o.c.do(ctx, http.MethodPost, "/orders", order)
}

func (o *OrderAPI) List(ctx context.Context) (*Response, error) {
	return o.c.do(ctx, http.MethodGet, "/orders", nil)
}

func (o *OrderAPI) ForUser(ctx context.Context, userID string) (*Response, error) {
	return o.c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(userID), nil)
}

func (o *OrderAPI) Update(ctx context.Context, id string, upd entity.OrderUpdate) (*Response, error) {
	return o.c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), upd)
}
