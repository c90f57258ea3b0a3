package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// TraceHeader carries the request trace id in and out.
const TraceHeader = "X-Request-ID"

const traceKey = "trace_id"

// traceID reuses an incoming trace id or mints one.
func traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(traceKey, id)
		c.Header(TraceHeader, id)
		c.Next()
	}
}

func traceOf(c *gin.Context) string {
	return c.GetString(traceKey)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"trace_id", traceOf(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func requireSession(session *service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.LoggedIn() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please login first"})
			return
		}
		c.Next()
	}
}

func requireAdmin(session *service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.IsAdmin() {
			slog.Warn("Admin route refused", "trace_id", traceOf(c), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
