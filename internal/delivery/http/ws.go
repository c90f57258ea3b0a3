package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/controller"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

const (
	wsSendBuffer   = 16
	wsWriteTimeout = 5 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes cart, session and notice updates to every connected UI.
// A client that cannot keep up is dropped.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}

	session *service.SessionStore
	cart    *service.CartStore
}

// NewHub builds a hub that accepts upgrades from origins ("*" for any) and
// subscribes to the stores and the notice board.
func NewHub(origins []string, session *service.SessionStore, cart *service.CartStore, notices *service.NoticeBoard) *Hub {
	h := &Hub{
		clients: make(map[*wsClient]struct{}),
		session: session,
		cart:    cart,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(origins)}

	cart.OnChange(func(snap entity.CartSnapshot) { h.Broadcast(cartMessage(snap)) })
	session.OnChange(func(_ context.Context, u *entity.User) { h.Broadcast(sessionMessage(u)) })
	notices.Subscribe(func(n service.Notice) { h.Broadcast(gin.H{"type": "notice", "notice": n}) })
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func cartMessage(snap entity.CartSnapshot) gin.H {
	view := controller.NewCartView(snap)
	return gin.H{"type": "cart", "items": view.Items, "total": view.Total}
}

func sessionMessage(u *entity.User) gin.H {
	return gin.H{"type": "session", "user": u}
}

// ServeWS upgrades the request and streams updates until the peer goes away.
// The current session and cart are sent first.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "trace_id", traceOf(c), "err", err)
		return
	}
	cl := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	for _, msg := range []gin.H{sessionMessage(h.session.Current()), cartMessage(h.cart.Snapshot())} {
		if data, err := json.Marshal(msg); err == nil {
			cl.send <- data
		}
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	slog.Info("WebSocket client connected", "remote", conn.RemoteAddr().String())

	go cl.writeLoop()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(cl)
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode WebSocket message", "err", err)
		return
	}

	h.mu.Lock()
	var slow []*wsClient
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.Unlock()

	for _, cl := range slow {
		slog.Warn("Dropping slow WebSocket client", "remote", cl.conn.RemoteAddr().String())
		h.remove(cl)
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()
	for _, cl := range clients {
		h.remove(cl)
	}
}

func (h *Hub) remove(cl *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		close(cl.send)
	}
}

func (cl *wsClient) writeLoop() {
	defer cl.conn.Close()
	for data := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("WebSocket write failed", "err", err)
			return
		}
	}
	_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
