package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/controller"
	delivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/file"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/redis"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Remote API ---
	baseURL, err := resolveBaseURL(ctx, cfg)
	if err != nil {
		slog.Error("Failed to resolve API base URL", "err", err)
		os.Exit(1)
	}
	client := api.NewClient(baseURL, api.WithTimeout(cfg.APITimeout))
	slog.Info("Remote API", "base_url", client.BaseURL())

	// --- Session persistence ---
	sessions, closeSessions, err := openSessionRepository(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open session store", "store", cfg.SessionStore, "err", err)
		os.Exit(1)
	}
	defer closeSessions.Close()

	// --- Kafka ---
	var publisher messaging.Publisher = messaging.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers, messaging.ActivityTopic)
		defer p.Close()
		publisher = p
		slog.Info("Publishing activity", "brokers", cfg.KafkaBrokers, "topic", messaging.ActivityTopic)
	}

	// --- Stores ---
	notices := service.NewNoticeBoard()
	session := service.NewSessionStore(sessions, publisher)
	cart := service.NewCartStore(session, client.Carts, notices, publisher)
	hub := delivery.NewHub(cfg.CORSOrigins, session, cart, notices)
	defer hub.Close()
	session.Init(ctx)

	// --- HTTP ---
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := delivery.NewHandler(delivery.Deps{
		Session:  session,
		Cart:     cart,
		Notices:  notices,
		Auth:     controller.NewAuth(client, session, notices),
		Catalog:  controller.NewCatalog(client, cart),
		CartPage: controller.NewCartPage(cart),
		Checkout: controller.NewCheckout(client, session, cart, notices, publisher),
		Account:  controller.NewAccount(client, session, notices),
		Admin:    controller.NewAdmin(client, session, notices, publisher),
		Hub:      hub,
	})
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler.Router(cfg.CORSOrigins),
	}

	go func() {
		slog.Info("🚀 Storefront starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}
}

func resolveBaseURL(ctx context.Context, cfg config.Config) (string, error) {
	var resolver api.Resolver = api.StaticURL(cfg.APIBaseURL)
	if cfg.ConsulAddr != "" {
		r, err := api.NewConsulResolver(cfg.ConsulAddr, cfg.APIServiceName, "/api")
		if err != nil {
			return "", err
		}
		resolver = r
	}
	return resolver.BaseURL(ctx)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openSessionRepository(ctx context.Context, cfg config.Config) (repository.SessionRepository, io.Closer, error) {
	switch cfg.SessionStore {
	case config.SessionPostgres:
		db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSessionRepository(db, "default"), db, nil
	case config.SessionRedis:
		rdb, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewSessionRepository(rdb, redis.DefaultKey), rdb, nil
	default:
		path := cfg.SessionFile
		if path == "" {
			path = file.DefaultPath()
		}
		slog.Info("Session file", "path", path)
		return file.NewSessionRepository(path), closerFunc(func() error { return nil }), nil
	}
}
