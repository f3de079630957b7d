package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-cart/internal/client"
	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/httpserver"
	"storefront-cart/internal/kv"
	"storefront-cart/internal/pricing"
	categoryrepo "storefront-cart/internal/repository/category"
	couponrepo "storefront-cart/internal/repository/coupon"
	"storefront-cart/internal/repository/customercart"
	productrepo "storefront-cart/internal/repository/product"
	"storefront-cart/internal/service/cartsync"
	categorysvc "storefront-cart/internal/service/category"
	"storefront-cart/internal/service/checkout"
	couponsvc "storefront-cart/internal/service/coupon"
	productsvc "storefront-cart/internal/service/product"
	"storefront-cart/internal/service/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	checks := map[string]httpserver.Check{}

	// The catalogue is optional unless it also stores the sessions.
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		if cfg.StorageBackend == config.StoragePostgres {
			logger.Fatalf("connect to db: %v", err)
		}
		logger.Printf("db unavailable, serving built-in coupons only: %v", err)
	} else {
		defer dbpool.Close()
		checks["db"] = dbpool.Ping
	}

	store, closeStore := openStore(ctx, cfg, dbpool, logger, checks)
	defer closeStore()

	policy := pricing.Policy{ApplyPercentageDiscount: cfg.ApplyPercentage}
	deps := httpserver.Deps{Checks: checks, AllowedOrigins: cfg.CORSAllowedOrigins}

	var coupons *couponsvc.Service
	var merger checkout.CartSyncer
	if dbpool != nil {
		coupons = couponsvc.New(logger, couponrepo.NewPostgres(dbpool, logger), couponrepo.NewStatic(couponrepo.Builtin))
		products := productsvc.New(productrepo.NewPostgres(dbpool, logger))
		merger = cartsync.New(products, customercart.NewPostgres(dbpool, logger), logger)
		deps.Products = products
		deps.Categories = categorysvc.New(categoryrepo.NewPostgres(dbpool))
		deps.Merger = merger
	} else {
		coupons = couponsvc.New(logger, couponrepo.NewStatic(couponrepo.Builtin))
	}
	deps.Coupons = coupons

	// Session flows verify coupons and sync carts either against a remote
	// storefront or against the services above.
	var verifier checkout.CouponVerifier = coupons
	syncer := merger
	if cfg.CouponAPIURL != "" {
		remote := client.New(client.Options{
			BaseURL:     cfg.CouponAPIURL,
			Timeout:     cfg.CouponTimeout,
			MaxFailures: cfg.BreakerMaxFailures,
			OpenFor:     cfg.BreakerOpenFor,
			Logger:      logger,
		})
		verifier = remote
		syncer = remote
		logger.Printf("verifying coupons against %s", cfg.CouponAPIURL)
	}

	registry := session.NewRegistry(session.Config{
		Store:    store,
		Policy:   policy,
		Verifier: verifier,
		Syncer:   syncer,
		Logger:   logger,
	})
	deps.Sessions = registry

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, registry, cfg.SessionIdle, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, deps)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s (storage=%s)", cfg.HTTPAddr, cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

func openStore(ctx context.Context, cfg config.Config, dbpool *pgxpool.Pool, logger *log.Logger, checks map[string]httpserver.Check) (kv.Store, func()) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		rdb, err := kv.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return kv.NewRedis(rdb, cfg.StorageTTL), func() { rdb.Close() }
	case config.StoragePostgres:
		return kv.NewPostgres(dbpool), func() {}
	case config.StorageMemory:
		logger.Printf("using in-memory storage, carts are lost on restart")
		return kv.NewMemory(), func() {}
	default:
		logger.Fatalf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
		return nil, nil
	}
}

// sweepSessions evicts flows idle for longer than idle. Their state stays in
// storage and is reloaded on the next request.
func sweepSessions(ctx context.Context, registry *session.Registry, idle time.Duration, logger *log.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Sweep(idle); n > 0 {
				logger.Printf("evicted %d idle sessions, %d active", n, registry.Len())
			}
		}
	}
}
