package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/config"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/observability"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: "storefront",
		Environment: cfg.Environment,
	})

	// Order store
	repo, err := openOrderRepository(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open order store", "backend", cfg.OrderStore, "error", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(&cfg.Database); err != nil {
		log.Fatal("failed to run migrations", "backend", cfg.OrderStore, "error", err)
	}
	log.Info("order store ready", "backend", cfg.OrderStore)
	orderService := orders.NewService(repo)

	// Confirmation email
	emailCfg := cfg.Email()
	diagnostics := notify.Diagnose(emailCfg, cfg.Notifier)
	notify.LogDiagnostics(log, diagnostics)

	mailer, closeMailer := buildMailer(cfg, log)
	defer closeMailer()

	renderer, err := notify.NewRenderer(emailCfg)
	if err != nil {
		log.Fatal("failed to load email template", "error", err)
	}

	products, err := catalog.Load()
	if err != nil {
		log.Fatal("failed to load catalog", "error", err)
	}

	// Session carts
	slots, releaseSlot, closeSlots, err := buildSlots(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to set up cart storage", "backend", cfg.CartSlot, "error", err)
	}
	defer closeSlots()

	policy := cfg.PricingPolicy()
	sessions := session.NewManager(session.NewFactory(session.Dependencies{
		Slots:         slots,
		Release:       releaseSlot,
		Orders:        orderService,
		Notifier:      mailer,
		Renderer:      renderer,
		Pricing:       policy,
		NotifyTimeout: cfg.NotifyTimeout,
		Log:           log,
	}), cfg.SessionIdleTTL, log)
	defer sessions.Close()

	checkoutDeps := h.CheckoutDeps{
		Orders:        orderService,
		Notifier:      mailer,
		Renderer:      renderer,
		Pricing:       policy,
		NotifyTimeout: cfg.NotifyTimeout,
	}
	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, h.Handlers{
		Checkout:    h.NewCheckoutHandler(checkoutDeps, log, cfg.RequestTimeout),
		Orders:      h.NewOrdersHandler(orderService, log, cfg.RequestTimeout),
		Cart:        h.NewCartHandler(products, policy, log),
		Products:    h.NewProductHandler(products),
		Diagnostics: h.NewDiagnosticsHandler(diagnostics),
		Sessions:    sessions,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}

	log.Info("server exited")
}

func openOrderRepository(ctx context.Context, cfg *config.Config) (repository.OrderRepository, error) {
	switch cfg.OrderStore {
	case config.OrderStorePostgres:
		return repository.NewPostgresRepository(&cfg.Database)
	case config.OrderStoreMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoRepository(db), nil
	case config.OrderStoreMemory:
		return repository.NewMemoryRepository(), nil
	default:
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	}
}

// buildMailer picks the delivery path. Direct Resend sends sit behind the
// circuit breaker; queued sends are retried by cmd/mailer instead.
func buildMailer(cfg *config.Config, log *logger.Logger) (notify.Mailer, func()) {
	switch cfg.Notifier {
	case config.NotifierResend:
		resend := notify.NewResendMailer(cfg.Email(), log)
		return notify.NewBreakerMailer(resend, cfg.Breaker("resend"), log), func() {}
	case config.NotifierKafka:
		q := notify.NewQueueMailer(cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.Info("queueing confirmation emails", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
		return q, func() {
			if err := q.Close(); err != nil {
				log.Warn("failed to close kafka writer", "error", err)
			}
		}
	default:
		return notify.NewDisabledMailer(log), func() {}
	}
}

func buildSlots(ctx context.Context, cfg *config.Config, log *logger.Logger) (session.SlotFunc, session.ReleaseFunc, func(), error) {
	switch cfg.CartSlot {
	case config.CartSlotRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("cart snapshots in redis", "addr", cfg.RedisAddr)
		return session.RedisSlots(client, cfg.CartTTL), nil, func() { client.Close() }, nil
	case config.CartSlotFile:
		if err := os.MkdirAll(cfg.CartDir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create cart dir: %w", err)
		}
		log.Info("cart snapshots on disk", "dir", cfg.CartDir)
		return session.FileSlots(cfg.CartDir), nil, func() {}, nil
	default:
		log.Warn("cart snapshots kept in memory; carts are lost on restart")
		pool := session.NewMemorySlotPool(cfg.CartTTL)
		return pool.Open, pool.Release, func() {}, nil
	}
}
