package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	r := &repo.GormRepo{DB: gdb}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS not set")
	}

	var index search.Index
	if cfg.ESURL != "" {
		es, err := search.New(search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		}, nil)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		if err := es.Ping(ctx); err != nil {
			logger.Warn("elasticsearch_unreachable", "error", err)
		}
		index = es
	}

	var locker lock.Locker = lock.NopLocker{}
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		locker = lock.NewRedisLocker(rdb, "storefront:lock:")
	} else {
		logger.Warn("redis_disabled", "reason", "REDIS_URL not set, checkout captures are not locked across instances")
	}

	var processor payment.Processor
	if cfg.PayPalEnabled() {
		processor = payment.NewPayPal(payment.PayPalConfig{
			BaseURL:      cfg.PayPalBaseURL,
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			WebhookID:    cfg.PayPalWebhookID,
		}, logger)
	} else {
		logger.Warn("fake_payment_processor", "reason", "PAYMENT_PROCESSOR=fake, every payment is approved without charging")
		processor = payment.NewFake()
	}

	idm := &identity.Middleware{Secret: cfg.SessionKey(), SecureCookies: cfg.SecureCookies}
	access := &service.AccessService{Repo: r}
	if cfg.IdentityURL != "" {
		ic := identity.NewClient(cfg.IdentityURL, cfg.IdentityAPIKey, logger)
		idm.Refresher = ic
		access.Users = ic
	}

	if cfg.AdminID != "" {
		adminID, err := uuid.Parse(cfg.AdminID)
		if err != nil {
			log.Fatalf("ADMIN_ID: %v", err)
		}
		if err := access.SeedAdmin(ctx, adminID, cfg.AdminEmail); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
	}

	addresses := &service.AddressService{Repo: r}
	checkout := &service.CheckoutService{
		Repo:      r,
		Addresses: addresses,
		Processor: processor,
		Locker:    locker,
		Events:    publisher,
		Currency:  cfg.Currency,
		LockTTL:   cfg.CheckoutLockTTL,
	}
	reconciler := &service.Reconciler{Checkout: checkout}

	e := httpserver.New(logger, cfg.ServiceName, &httpserver.Deps{
		DB:        gdb,
		Identity:  idm,
		CSRF:      csrf.Config{Secure: cfg.SecureCookies},
		Addresses: &httpserver.AddressHTTP{Svc: addresses},
		Catalog:   &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r, Events: publisher, Index: index}},
		Cart:      &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Events: publisher}},
		Checkout:  &httpserver.CheckoutHTTP{Svc: checkout},
		Orders:    &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r, Access: access, Events: publisher}},
		Payments: &httpserver.PaymentHTTP{
			Svc:      &service.PaymentService{Repo: r, Processor: processor, Events: publisher},
			Webhooks: &service.WebhookService{Repo: r, Processor: processor, Events: publisher},
		},
		Admin: &httpserver.AdminHTTP{Access: access, Reconciler: reconciler},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bg, stopBg := context.WithCancel(ctx)
	go reconciler.Loop(bg, cfg.ReconcileInterval)

	go func() {
		logger.Info("storefront_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting_down")

	stopBg()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_failed", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("storefront_stopped")
}
