// Package apitest provides an in-memory stand-in for the remote storefront
// API, speaking the same routes and envelopes. It is meant for tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type cartLine struct {
	id        string
	userID    string
	productID string
	quantity  int
}

type failure struct {
	method string
	prefix string
	status int
	msg    string
}

// Server is a running fake API. All state is guarded by mu.
type Server struct {
	srv *httptest.Server

	// KeepCartOnOrder disables the server-side cart emptying that order
	// creation performs by default.
	KeepCartOnOrder bool

	mu        sync.Mutex
	users     map[string]entity.User
	passwords map[string]string
	products  map[string]entity.Product
	order     []string // product ids in insertion order
	cart      []cartLine
	orders    []entity.Order
	failures  []failure
	calls     map[string]int
}

// NewServer starts a fake API and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		users:     map[string]entity.User{},
		passwords: map[string]string{},
		products:  map[string]entity.Product{},
		calls:     map[string]int{},
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// BaseURL is the API root to hand to api.NewClient.
func (s *Server) BaseURL() string {
	return s.srv.URL + "/api"
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.record, s.inject)

	v1 := r.Group("/api")
	{
		v1.POST("/register", s.register)
		v1.POST("/login", s.login)

		v1.GET("/getusers", s.listUsers)
		v1.GET("/getuserbyemail/:email", s.userByEmail)
		v1.PUT("/updateuser/:id", s.updateUser)
		v1.DELETE("/deleteuser/:id", s.deleteUser)

		v1.POST("/product/:userId", s.createProduct)
		v1.GET("/product", s.listProducts)
		v1.GET("/product/:id", s.getProduct)
		v1.PUT("/product/:id", s.updateProduct)
		v1.DELETE("/product/:id", s.deleteProduct)

		v1.POST("/addtocart/:userId/:productId/:quantity", s.addToCart)
		v1.GET("/getcartsofuser/:userId", s.cartOfUser)
		v1.PUT("/updatecart/:cartId/:quantity", s.updateCart)
		v1.DELETE("/deletecart/:cartId", s.deleteCart)

		v1.POST("/orders", s.createOrder)
		v1.GET("/orders", s.listOrders)
		v1.GET("/orders/:userId", s.ordersOfUser)
		v1.PUT("/orders/:id", s.updateOrder)
	}
	return r
}

// --- test helpers ---

// SeedUser adds an account that can log in with password.
func (s *Server) SeedUser(u entity.User, password string) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	s.passwords[u.ID] = password
	return u
}

// SeedProduct adds a product to the catalog.
func (s *Server) SeedProduct(p entity.Product) entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	return p
}

// SeedOrder stores an order as-is.
func (s *Server) SeedOrder(o entity.Order) entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.orders = append(s.orders, o)
	return o
}

// Fail makes every request whose method matches and whose path (below /api)
// starts with prefix answer status with {"error": msg}.
func (s *Server) Fail(method, prefix string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status, msg: msg})
}

// Heal removes all injected failures.
func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Calls counts requests by "METHOD /route/:pattern".
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

// TotalCalls counts every request served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// CartLines returns the number of server-side cart lines for userID.
func (s *Server) CartLines(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.cart {
		if l.userID == userID {
			n++
		}
	}
	return n
}

// Orders returns a copy of all stored orders.
func (s *Server) Orders() []entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Order{}, s.orders...)
}

// Product returns the stored product.
func (s *Server) Product(id string) (entity.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// --- middleware ---

// record counts before handling so the count is visible by the time the
// client has read the response.
func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.calls[c.Request.Method+" "+strings.TrimPrefix(c.FullPath(), "/api")]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	path := strings.TrimPrefix(c.Request.URL.Path, "/api")
	s.mu.Lock()
	var hit *failure
	for i := range s.failures {
		f := s.failures[i]
		if f.method == c.Request.Method && strings.HasPrefix(path, f.prefix) {
			hit = &f
			break
		}
	}
	s.mu.Unlock()
	if hit != nil {
		c.AbortWithStatusJSON(hit.status, gin.H{"error": hit.msg})
		return
	}
	c.Next()
}

// --- auth & users ---

func (s *Server) register(c *gin.Context) {
	var req entity.Registration
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
			return
		}
	}
	now := time.Now().UTC()
	u := entity.User{ID: uuid.NewString(), Username: req.Username, Email: req.Email, Contact: req.Contact, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.passwords[u.ID] = req.Password
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": u})
}

func (s *Server) login(c *gin.Context) {
	var req entity.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) && s.passwords[id] == req.Password {
			if u.IsBlocked {
				c.JSON(http.StatusForbidden, gin.H{"error": "User is blocked"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": u, "token": "token-" + id})
			return
		}
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]entity.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) userByEmail(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, c.Param("email")) {
			c.JSON(http.StatusOK, gin.H{"user": u})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
}

func (s *Server) updateUser(c *gin.Context) {
	var req entity.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Contact != "" {
		u.Contact = req.Contact
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": u})
}

func (s *Server) deleteUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.users[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	delete(s.users, id)
	delete(s.passwords, id)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// --- products ---

func (s *Server) createProduct(c *gin.Context) {
	var in entity.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[c.Param("userId")]; !ok || !u.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can create products"})
		return
	}
	p := productFromInput(uuid.NewString(), in)
	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": p})
}

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]entity.Product, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.products[id]; ok {
			products = append(products, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) getProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (s *Server) updateProduct(c *gin.Context) {
	var in entity.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.products[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	p := productFromInput(id, in)
	s.products[id] = p
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": p})
}

func (s *Server) deleteProduct(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.products[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	delete(s.products, id)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func productFromInput(id string, in entity.ProductInput) entity.Product {
	return entity.Product{
		ID:             id,
		Name:           in.Name,
		Price:          in.Price,
		Category:       in.Category,
		Description:    in.Description,
		Image:          in.Image,
		StockAvailable: in.StockAvailable,
	}
}

// --- cart ---

func (s *Server) addToCart(c *gin.Context) {
	qty, err := strconv.Atoi(c.Param("quantity"))
	if err != nil || qty < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, productID := c.Param("userId"), c.Param("productId")
	if _, ok := s.users[userID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	p, ok := s.products[productID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	for i, l := range s.cart {
		if l.userID == userID && l.productID == productID {
			if l.quantity+qty > p.StockAvailable {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock"})
				return
			}
			s.cart[i].quantity += qty
			c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
			return
		}
	}
	if qty > p.StockAvailable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock"})
		return
	}
	s.cart = append(s.cart, cartLine{id: uuid.NewString(), userID: userID, productID: productID, quantity: qty})
	c.JSON(http.StatusCreated, gin.H{"message": "Added to cart"})
}

func (s *Server) cartOfUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := c.Param("userId")
	items := []entity.CartItem{}
	for _, l := range s.cart {
		if l.userID != userID {
			continue
		}
		p := s.products[l.productID]
		items = append(items, entity.CartItem{
			ID:     l.id,
			UserID: l.userID,
			Product: entity.ProductRef{
				ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, StockAvailable: p.StockAvailable,
			},
			Quantity: l.quantity,
		})
	}
	c.JSON(http.StatusOK, gin.H{"cart": items})
}

func (s *Server) updateCart(c *gin.Context) {
	qty, err := strconv.Atoi(c.Param("quantity"))
	if err != nil || qty < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.cart {
		if l.id == c.Param("cartId") {
			if qty > s.products[l.productID].StockAvailable {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock"})
				return
			}
			s.cart[i].quantity = qty
			c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
}

func (s *Server) deleteCart(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.cart {
		if l.id == c.Param("cartId") {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
}

// --- orders ---

func (s *Server) createOrder(c *gin.Context) {
	var req entity.NewOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.UserID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	order := entity.Order{
		ID:              uuid.NewString(),
		User:            entity.OrderCustomer{ID: req.UserID},
		PaymentMode:     req.PaymentMode,
		Status:          req.Status,
		OrderDate:       time.Now().UTC(),
		ShippingAddress: req.ShippingAddress,
	}
	var rest []cartLine
	for _, l := range s.cart {
		if l.userID != req.UserID {
			rest = append(rest, l)
			continue
		}
		p := s.products[l.productID]
		order.Lines = append(order.Lines, entity.OrderLine{
			Product:  entity.ProductRef{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image},
			Quantity: l.quantity,
		})
		order.TotalAmount = order.TotalAmount.Add(p.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	if len(order.Lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}
	if !s.KeepCartOnOrder {
		s.cart = rest
	}
	s.orders = append(s.orders, order)
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed", "order": order})
}

func (s *Server) listOrders(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]entity.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if u, ok := s.users[o.User.ID]; ok {
			o.User = entity.OrderCustomer{ID: u.ID, Username: u.Username, Email: u.Email}
		}
		orders = append(orders, o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) ordersOfUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := []entity.Order{}
	for _, o := range s.orders {
		if o.User.ID == c.Param("userId") {
			orders = append(orders, o)
		}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) updateOrder(c *gin.Context) {
	var req entity.OrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.ID == c.Param("id") {
			s.orders[i].Status = req.Status
			if req.DeliveryDate != nil {
				d := *req.DeliveryDate
				s.orders[i].DeliveryDate = &d
			}
			c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": s.orders[i]})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
}
