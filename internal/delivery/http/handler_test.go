package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/apitest"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/controller"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

type harness struct {
	backend *apitest.Server
	router  *gin.Engine
	hub     *Hub
	product entity.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	backend := apitest.NewServer(t)
	client := api.NewClient(backend.BaseURL())
	session := service.NewSessionStore(nil, nil)
	board := service.NewNoticeBoard()
	cart := service.NewCartStore(session, client.Carts, board, nil)
	hub := NewHub([]string{"*"}, session, cart, board)
	t.Cleanup(hub.Close)

	h := NewHandler(Deps{
		Session:  session,
		Cart:     cart,
		Notices:  board,
		Auth:     controller.NewAuth(client, session, board),
		Catalog:  controller.NewCatalog(client, cart),
		CartPage: controller.NewCartPage(cart),
		Checkout: controller.NewCheckout(client, session, cart, board, nil),
		Account:  controller.NewAccount(client, session, board),
		Admin:    controller.NewAdmin(client, session, board, nil),
		Hub:      hub,
	})

	backend.SeedUser(entity.User{Username: "ann", Email: "ann@x.io"}, "secret1")
	backend.SeedUser(entity.User{Username: "root", Email: "root@x.io", IsAdmin: true}, "secret1")
	return &harness{
		backend: backend,
		router:  h.Router(nil),
		hub:     hub,
		product: backend.SeedProduct(entity.Product{Name: "Mug", Price: decimal.RequireFromString("19.99"), Category: "home", StockAvailable: 5}),
	}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/session", entity.Credentials{Email: email, Password: "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/ping", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Header().Get(TraceHeader) == "" {
		t.Fatalf("expected trace header")
	}
}

func TestCartRequiresSession(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/cart", gin.H{"productId": h.product.ID, "quantity": 1})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/api/checkout", gin.H{"shippingaddress": "1 Main St"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("checkout: expected 401, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/cart", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("view: expected 401, got %d", rec.Code)
	}
	if h.backend.TotalCalls() != 0 {
		t.Fatalf("anonymous requests must not reach the API")
	}

	rec = h.do(t, http.MethodGet, "/api/notices", nil)
	notices := decode[struct {
		Notices []service.Notice `json:"notices"`
	}](t, rec)
	var titles []string
	for _, n := range notices.Notices {
		titles = append(titles, n.Title)
	}
	if len(titles) != 2 || titles[0] != "Login Required" || titles[1] != "Authentication Required" {
		t.Fatalf("unexpected notices %v", titles)
	}
}

func TestShoppingFlow(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ann@x.io")

	rec := h.do(t, http.MethodPost, "/api/cart", gin.H{"productId": h.product.ID, "quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: status %d body %s", rec.Code, rec.Body)
	}
	view := decode[controller.CartView](t, rec)
	if len(view.Items) != 1 || view.Count != 2 {
		t.Fatalf("unexpected cart %+v", view)
	}
	if !strings.Contains(rec.Body.String(), `"total":39.98`) {
		t.Fatalf("expected numeric total, got %s", rec.Body)
	}

	rec = h.do(t, http.MethodPut, "/api/cart/"+view.Items[0].ID, gin.H{"quantity": 3})
	if got := decode[controller.CartView](t, rec); got.Count != 3 {
		t.Fatalf("expected 3 units, got %+v", got)
	}

	rec = h.do(t, http.MethodPost, "/api/checkout", gin.H{"shippingaddress": "1 Main St", "paymentmode": "online"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: status %d body %s", rec.Code, rec.Body)
	}

	rec = h.do(t, http.MethodGet, "/api/orders", nil)
	orders := decode[struct {
		Orders []entity.Order `json:"orders"`
	}](t, rec)
	if len(orders.Orders) != 1 || orders.Orders[0].PaymentMode != entity.PaymentOnline {
		t.Fatalf("unexpected orders %+v", orders)
	}

	rec = h.do(t, http.MethodGet, "/api/notices", nil)
	notices := decode[struct {
		Notices []service.Notice `json:"notices"`
	}](t, rec)
	if len(notices.Notices) == 0 || notices.Notices[len(notices.Notices)-1].Title != "Order Placed Successfully!" {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func TestCheckoutValidation(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ann@x.io")
	h.do(t, http.MethodPost, "/api/cart", gin.H{"productId": h.product.ID})

	rec := h.do(t, http.MethodPost, "/api/checkout", gin.H{"paymentmode": "cod"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	if body.Fields["shippingaddress"] == "" {
		t.Fatalf("expected shippingaddress error, got %v", body.Fields)
	}
}

func TestBackendErrorsPassThrough(t *testing.T) {
	h := newHarness(t)
	h.login(t, "ann@x.io")

	rec := h.do(t, http.MethodPost, "/api/cart", gin.H{"productId": h.product.ID, "quantity": 99})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode[gin.H](t, rec); body["error"] != "Insufficient stock" {
		t.Fatalf("unexpected body %v", body)
	}

	h.backend.Fail(http.MethodGet, "/product", http.StatusInternalServerError, "db down")
	rec = h.do(t, http.MethodGet, "/api/products", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestAdminGate(t *testing.T) {
	h := newHarness(t)
	if rec := h.do(t, http.MethodGet, "/api/admin/dashboard", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous: expected 403, got %d", rec.Code)
	}
	h.login(t, "ann@x.io")
	if rec := h.do(t, http.MethodGet, "/api/admin/dashboard", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("shopper: expected 403, got %d", rec.Code)
	}

	h.login(t, "root@x.io")
	rec := h.do(t, http.MethodGet, "/api/admin/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status %d body %s", rec.Code, rec.Body)
	}
	stats := decode[entity.DashboardStats](t, rec)
	if stats.TotalUsers != 2 || stats.TotalProducts != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAdminExport(t *testing.T) {
	h := newHarness(t)
	h.login(t, "root@x.io")
	rec := h.do(t, http.MethodGet, "/api/admin/export/products.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "products.xlsx") {
		t.Fatalf("missing attachment header")
	}
}

func TestFeaturedRouteDoesNotHitProductByID(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/products/featured", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	if h.backend.Calls(http.MethodGet, "/product/:id") != 0 {
		t.Fatalf("featured must list, not fetch by id")
	}
}

func TestWebSocketPushesCart(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Initial session and cart state.
	for _, want := range []string{"session", "cart"} {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg["type"] != want {
			t.Fatalf("expected %s message, got %v", want, msg)
		}
	}

	h.login(t, "ann@x.io")
	h.do(t, http.MethodPost, "/api/cart", gin.H{"productId": h.product.ID, "quantity": 1})

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg["type"] != "cart" {
			continue
		}
		if items, _ := msg["items"].([]any); len(items) == 1 {
			return
		}
	}
}
