package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/controller"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Deps are the collaborators the HTTP surface renders.
type Deps struct {
	Session  *service.SessionStore
	Cart     *service.CartStore
	Notices  *service.NoticeBoard
	Auth     *controller.Auth
	Catalog  *controller.Catalog
	CartPage *controller.CartPage
	Checkout *controller.Checkout
	Account  *controller.Account
	Admin    *controller.Admin
	Hub      *Hub
}

// Handler handles HTTP requests for the storefront.
type Handler struct {
	d Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{d: d}
}

// Router builds the gin engine. origins lists allowed CORS origins; empty or
// "*" allows any.
func (h *Handler) Router(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(traceID(), requestLogger(), gin.Recovery(), cors.New(corsConfig(origins)))

	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if h.d.Hub != nil {
		r.GET("/ws", h.d.Hub.ServeWS)
	}

	v1 := r.Group("/api")
	{
		v1.POST("/register", h.handleRegister)
		v1.POST("/session", h.handleLogin)
		v1.GET("/session", h.handleSession)
		v1.DELETE("/session", h.handleLogout)
		v1.POST("/contact", h.handleContact)
		v1.GET("/notices", h.handleNotices)

		v1.GET("/products", h.handleProducts)
		v1.GET("/products/featured", h.handleFeatured)
		v1.GET("/products/:id", h.handleProduct)

		// The stores check the session themselves and post the notice.
		v1.POST("/cart", h.handleAddToCart)
		v1.POST("/checkout", h.handleCheckout)

		shopper := v1.Group("", requireSession(h.d.Session))
		shopper.GET("/cart", h.handleCart)
		shopper.PUT("/cart/:id", h.handleChangeQuantity)
		shopper.DELETE("/cart/:id", h.handleRemoveFromCart)
		shopper.GET("/orders", h.handleMyOrders)
		shopper.PUT("/profile", h.handleProfile)

		admin := v1.Group("/admin", requireAdmin(h.d.Session))
		admin.GET("/dashboard", h.handleDashboard)
		admin.GET("/products", h.handleAdminProducts)
		admin.POST("/products", h.handleCreateProduct)
		admin.PUT("/products/:id", h.handleUpdateProduct)
		admin.DELETE("/products/:id", h.handleDeleteProduct)
		admin.GET("/users", h.handleAdminUsers)
		admin.DELETE("/users/:id", h.handleDeleteUser)
		admin.POST("/users/:id/block", h.handleToggleBlock)
		admin.GET("/orders", h.handleAdminOrders)
		admin.PUT("/orders/:id", h.handleUpdateOrder)
		admin.GET("/export/products.xlsx", h.handleExportProducts)
		admin.GET("/export/orders.xlsx", h.handleExportOrders)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", TraceHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", TraceHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// fail maps an error to a status code and a JSON error body.
func fail(c *gin.Context, err error) {
	var (
		vErr   *controller.ValidationError
		apiErr *api.Error
		status int
		body   = gin.H{}
	)
	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		status, body["error"] = http.StatusUnauthorized, "Please login first"
	case errors.Is(err, controller.ErrForbidden):
		status, body["error"] = http.StatusForbidden, "Admin access required"
	case errors.Is(err, controller.ErrEmptyCart):
		status, body["error"] = http.StatusBadRequest, "Cart is empty"
	case errors.As(err, &vErr):
		status, body["error"], body["fields"] = http.StatusBadRequest, "Invalid input", vErr.Fields
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		status, body["error"] = apiErr.StatusCode, api.Message(err, http.StatusText(apiErr.StatusCode))
	default:
		status, body["error"] = http.StatusBadGateway, api.Message(err, "Upstream request failed")
	}
	slog.Error("Request failed", "trace_id", traceOf(c), "path", c.Request.URL.Path, "status", status, "err", err)
	c.AbortWithStatusJSON(status, body)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		slog.Error("Invalid request body", "trace_id", traceOf(c), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return false
	}
	return true
}

// --- session & account ---

func (h *Handler) handleRegister(c *gin.Context) {
	var req entity.Registration
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.d.Auth.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req entity.Credentials
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.d.Auth.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "isAdmin": user.IsAdmin})
}

func (h *Handler) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": h.d.Session.Current(), "isAdmin": h.d.Session.IsAdmin()})
}

func (h *Handler) handleLogout(c *gin.Context) {
	if err := h.d.Auth.Logout(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) handleContact(c *gin.Context) {
	var req controller.ContactForm
	if !bindJSON(c, &req) {
		return
	}
	if err := h.d.Account.Contact(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Message sent"})
}

func (h *Handler) handleNotices(c *gin.Context) {
	notices := h.d.Notices.Drain()
	if notices == nil {
		notices = []service.Notice{}
	}
	c.JSON(http.StatusOK, gin.H{"notices": notices})
}

func (h *Handler) handleMyOrders(c *gin.Context) {
	orders, err := h.d.Account.MyOrders(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) handleProfile(c *gin.Context) {
	var req entity.UserUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.d.Account.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// --- catalog ---

func (h *Handler) handleProducts(c *gin.Context) {
	products, err := h.d.Catalog.Products(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) handleFeatured(c *gin.Context) {
	products, err := h.d.Catalog.Featured(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) handleProduct(c *gin.Context) {
	product, err := h.d.Catalog.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// --- cart & checkout ---

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleCart(c *gin.Context) {
	view, err := h.d.CartPage.Load(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) handleAddToCart(c *gin.Context) {
	var req addToCartRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.d.Cart.AddToCart(c.Request.Context(), req.ProductID, req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.d.CartPage.View())
}

func (h *Handler) handleChangeQuantity(c *gin.Context) {
	var req quantityRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.d.CartPage.ChangeQuantity(c.Request.Context(), c.Param("id"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.d.CartPage.View())
}

func (h *Handler) handleRemoveFromCart(c *gin.Context) {
	if err := h.d.CartPage.Remove(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.d.CartPage.View())
}

func (h *Handler) handleCheckout(c *gin.Context) {
	var req controller.CheckoutForm
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.d.Checkout.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// --- admin ---

func (h *Handler) handleDashboard(c *gin.Context) {
	stats, err := h.d.Admin.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) handleAdminProducts(c *gin.Context) {
	products, err := h.d.Admin.Products(c.Request.Context())
	h.products(c, http.StatusOK, products, err)
}

func (h *Handler) handleCreateProduct(c *gin.Context) {
	var req entity.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	products, err := h.d.Admin.CreateProduct(c.Request.Context(), req)
	h.products(c, http.StatusCreated, products, err)
}

func (h *Handler) handleUpdateProduct(c *gin.Context) {
	var req entity.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	products, err := h.d.Admin.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	h.products(c, http.StatusOK, products, err)
}

func (h *Handler) handleDeleteProduct(c *gin.Context) {
	products, err := h.d.Admin.DeleteProduct(c.Request.Context(), c.Param("id"))
	h.products(c, http.StatusOK, products, err)
}

func (h *Handler) products(c *gin.Context, status int, products []entity.Product, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, gin.H{"products": products})
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

func (h *Handler) handleAdminUsers(c *gin.Context) {
	users, err := h.d.Admin.Users(c.Request.Context())
	h.users(c, users, err)
}

func (h *Handler) handleDeleteUser(c *gin.Context) {
	users, err := h.d.Admin.DeleteUser(c.Request.Context(), c.Param("id"))
	h.users(c, users, err)
}

// handleToggleBlock takes the user's current blocked flag.
func (h *Handler) handleToggleBlock(c *gin.Context) {
	var req blockRequest
	if !bindJSON(c, &req) {
		return
	}
	users, err := h.d.Admin.ToggleBlock(c.Request.Context(), c.Param("id"), req.Blocked)
	h.users(c, users, err)
}

func (h *Handler) users(c *gin.Context, users []entity.User, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type statusRequest struct {
	Status entity.OrderStatus `json:"status" binding:"required"`
}

func (h *Handler) handleAdminOrders(c *gin.Context) {
	orders, err := h.d.Admin.Orders(c.Request.Context(), c.Query("status"))
	h.orders(c, orders, err)
}

func (h *Handler) handleUpdateOrder(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	orders, err := h.d.Admin.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	h.orders(c, orders, err)
}

func (h *Handler) orders(c *gin.Context, orders []entity.Order, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) handleExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.d.Admin.ExportProducts(c.Request.Context(), &buf); err != nil {
		fail(c, err)
		return
	}
	attachment(c, "products.xlsx", buf.Bytes())
}

func (h *Handler) handleExportOrders(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.d.Admin.ExportOrders(c.Request.Context(), &buf); err != nil {
		fail(c, err)
		return
	}
	attachment(c, "orders.xlsx", buf.Bytes())
}

func attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Expires", "0")
	c.Data(http.StatusOK, xlsxContentType, data)
}
