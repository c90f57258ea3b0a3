package entity

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The remote API speaks plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// User is a storefront account as returned by the remote API.
type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Contact   string    `json:"contact,omitempty"`
	IsAdmin   bool      `json:"isadmin"`
	IsBlocked bool      `json:"isblocked"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Product represents a product in the store.
type Product struct {
	ID             string          `json:"_id"`
	Name           string          `json:"productname"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Image          string          `json:"image"`
	StockAvailable int             `json:"stock_available"`
	IsActive       *bool           `json:"isactive,omitempty"`
}

// ProductRef is the product snapshot embedded in cart lines and order lines.
type ProductRef struct {
	ID             string          `json:"_id"`
	Name           string          `json:"productname"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image,omitempty"`
	StockAvailable int             `json:"stock_available,omitempty"`
}

// CartItem is one line of a user's cart.
type CartItem struct {
	ID       string     `json:"_id"`
	UserID   string     `json:"userid"`
	Product  ProductRef `json:"productid"`
	Quantity int        `json:"quantity"`
}

// Subtotal is price × quantity for the line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type PaymentMode string

const (
	PaymentCashOnDelivery PaymentMode = "cod"
	PaymentOnline         PaymentMode = "online"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// OrderLine is a line item within an order.
type OrderLine struct {
	Product  ProductRef `json:"productid"`
	Quantity int        `json:"quantity"`
}

// OrderCustomer is the owner of an order. The user-scoped endpoint returns a
// bare id while the list-all endpoint embeds {_id, username, email}.
type OrderCustomer struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (c *OrderCustomer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = OrderCustomer{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = OrderCustomer{ID: id}
		return nil
	}
	type plain OrderCustomer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = OrderCustomer(p)
	return nil
}

// Order represents a customer order. The storefront never mutates an order
// after creation; only admin status updates change Status and DeliveryDate.
type Order struct {
	ID              string          `json:"_id"`
	User            OrderCustomer   `json:"userid"`
	Lines           []OrderLine     `json:"products"`
	TotalAmount     decimal.Decimal `json:"totalamount"`
	PaymentMode     PaymentMode     `json:"paymentmode"`
	Status          OrderStatus     `json:"status"`
	OrderDate       time.Time       `json:"orderdate"`
	DeliveryDate    *time.Time      `json:"deliverydate,omitempty"`
	ShippingAddress string          `json:"shippingaddress"`
	IsCancelled     bool            `json:"iscancelled"`
}

// DashboardStats aggregates the three admin collections.
type DashboardStats struct {
	TotalUsers      int             `json:"totalUsers"`
	TotalProducts   int             `json:"totalProducts"`
	TotalOrders     int             `json:"totalOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	PendingOrders   int             `json:"pendingOrders"`
	CompletedOrders int             `json:"completedOrders"`
}

// NewDashboardStats folds the collections into the admin summary.
func NewDashboardStats(users []User, products []Product, orders []Order) DashboardStats {
	stats := DashboardStats{
		TotalUsers:    len(users),
		TotalProducts: len(products),
		TotalOrders:   len(orders),
	}
	for _, o := range orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		switch o.Status {
		case OrderPending:
			stats.PendingOrders++
		case OrderCompleted:
			stats.CompletedOrders++
		}
	}
	return stats
}

// --- Request payloads ---

// Registration is the body of POST /register.
type Registration struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Contact  string `json:"contact,omitempty"`
}

// Credentials is the body of POST /login.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserUpdate is the partial body of PUT /updateuser/{id}.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Contact  string `json:"contact,omitempty"`
}

// ProductInput is the body of product create and update calls.
type ProductInput struct {
	Name           string          `json:"productname" validate:"required"`
	Price          decimal.Decimal `json:"price" validate:"gte=0"`
	Category       string          `json:"category" validate:"required"`
	Description    string          `json:"description"`
	Image          string          `json:"image" validate:"omitempty,url"`
	StockAvailable int             `json:"stock_available" validate:"gte=0"`
}

// NewOrder is the body of POST /orders.
type NewOrder struct {
	UserID          string      `json:"userid"`
	PaymentMode     PaymentMode `json:"paymentmode"`
	ShippingAddress string      `json:"shippingaddress"`
	Status          OrderStatus `json:"status"`
}

// OrderUpdate is the body of PUT /orders/{id}.
type OrderUpdate struct {
	Status       OrderStatus `json:"status"`
	DeliveryDate *time.Time  `json:"deliverydate,omitempty"`
}
