package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"aerostore/internal/admin"
	adminhandler "aerostore/internal/admin/handler"
	"aerostore/internal/auth"
	authhandler "aerostore/internal/auth/handler"
	"aerostore/internal/cart"
	carthandler "aerostore/internal/cart/handler"
	"aerostore/internal/catalog"
	cataloghandler "aerostore/internal/catalog/handler"
	"aerostore/internal/checkout"
	checkouthandler "aerostore/internal/checkout/handler"
	"aerostore/internal/customer"
	jwttoken "aerostore/internal/jwt_token"
	"aerostore/internal/notify"
	"aerostore/internal/platform/config"
	"aerostore/internal/platform/httpserver"
	"aerostore/internal/platform/logger"
	"aerostore/internal/platform/metrics"
	"aerostore/internal/platform/middleware"
	platformredis "aerostore/internal/platform/redis"
	"aerostore/internal/session"
	"aerostore/pkg/platform/fieldcipher"
)

// main wires the storefront: stores, session guard, checkout engine, and the
// HTTP router. Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	// Backing stores. Postgres and redis are optional so the storefront can
	// run self-contained in development; production sets both.
	var (
		db          *sql.DB
		productsMem *catalog.InMemoryStore
		products    catalog.Store
		customers   customer.Store
		carts       cart.PersistedStore
		orders      checkout.Store
		ordersTx    checkout.StoreTx
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("could not open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		products = catalog.NewPostgresStore(db)
		customers = customer.NewPostgresStore(db)
		carts = cart.NewPostgresPersistedStore(db)
		orders = checkout.NewPostgres(db)
		ordersTx = newCheckoutPostgresTx(db, cfg.Checkout.TxTimeout)
	} else {
		log.Warn("POSTGRES_URL not set, using in-memory stores with demo catalog")
		productsMem = catalog.NewInMemoryStore()
		productsMem.Seed(demoCatalog()...)
		customersMem := customer.NewInMemoryStore()
		ordersMem := checkout.NewInMemory(productsMem, customersMem)
		products = productsMem
		customers = customersMem
		carts = cart.NewInMemoryPersistedStore()
		orders = ordersMem
		ordersTx = checkout.NewInMemoryTx(ordersMem)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}
	var sessionStore session.Store
	if redisClient != nil {
		defer redisClient.Close()
		sessionStore = session.NewRedis(redisClient.Client, cfg.Session.TTL)
	} else {
		log.Warn("REDIS_URL not set, sessions are process-local")
		sessionStore = session.NewInMemoryStore()
	}

	if db != nil || redisClient != nil {
		if err := pingBackends(db, redisClient); err != nil {
			log.Error("backend health check failed", "error", err)
			os.Exit(1)
		}
	}

	// An absent key disables checkout rather than storing sensitive fields
	// in the clear.
	var cipher *fieldcipher.Cipher
	if cfg.Checkout.FieldKey != "" {
		cipher, err = fieldcipher.New(cfg.Checkout.FieldKey)
		if err != nil {
			log.Error("invalid DATA_ENC_KEY", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("DATA_ENC_KEY not set, checkout is disabled")
	}

	var dispatcher notify.Dispatcher
	if kafkaDispatcher := notify.NewKafkaDispatcher(cfg.Notify.Brokers, cfg.Notify.Topic); kafkaDispatcher != nil {
		defer kafkaDispatcher.Close()
		dispatcher = kafkaDispatcher
	} else {
		dispatcher = notify.NewLogDispatcher(log)
	}

	// Services.
	catalogService := catalog.NewService(products)
	cartService := cart.NewService(products, carts)
	jwtService := jwttoken.NewJWTService(cfg.Admin.JWTKey, "aerostore", "aerostore-admin")
	adminValidator := jwttoken.NewJWTServiceAdapter(jwtService)
	authService := auth.NewService(customers, auth.AdminCredentials{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
		TokenTTL:     cfg.Admin.TokenTTL,
	}, jwtService)
	engine := checkout.NewEngine(ordersTx, cipher, cartService, dispatcher, log, m,
		cfg.Checkout.AllowedDomains, cfg.Notify.Timeout)
	adminService := admin.NewService(ordersTx, orders, cipher, log)

	sessionManager := session.NewManager(sessionStore, session.Guard{
		InactivityTimeout: cfg.Session.InactivityTimeout,
		AbsoluteMaxAge:    cfg.Session.AbsoluteMaxAge,
		AdminPathPrefix:   "/admin",
		AdminLoginPath:    "/admin/login",
	}, cfg.Session.CookieName, log, m)

	// Router.
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(sessionManager.Middleware)

	cataloghandler.New(catalogService, log, adminValidator).Register(r)
	carthandler.New(cartService, catalogService, sessionManager, log, m).Register(r)
	checkouthandler.New(engine, sessionManager, log).Register(r)
	authhandler.New(authService, cartService, sessionManager, log).Register(r)
	adminhandler.New(adminService, log, adminValidator).Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)
	log.Info("starting aerostore", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// pingBackends verifies the configured backends concurrently so a dead
// dependency fails startup fast instead of surfacing on first request.
func pingBackends(db *sql.DB, redisClient *platformredis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if db != nil {
		g.Go(func() error { return db.PingContext(ctx) })
	}
	if redisClient != nil {
		g.Go(func() error { return redisClient.Health(ctx) })
	}
	return g.Wait()
}

// demoCatalog seeds the in-memory catalog used when no database is
// configured.
func demoCatalog() []catalog.Product {
	return []catalog.Product{
		{SKU: "F35", Name: "F-35 Lightning II", Description: "Fifth-generation multirole stealth fighter.", Price: 250_000_000, Stock: 3, Image: "f35.jpg"},
		{SKU: "FA18", Name: "F/A-18 Super Hornet", Description: "Carrier-capable multirole fighter.", Price: 67_000_000, Stock: 8, Image: "fa18.jpg"},
		{SKU: "GROWLER", Name: "EA-18G Growler", Description: "Electronic warfare variant of the Super Hornet.", Price: 125_000_000, Stock: 4, Image: "growler.jpg"},
		{SKU: "B2", Name: "B-2 Spirit", Description: "Long-range stealth strategic bomber.", Price: 2_000_000_000, Stock: 1, Image: "b2.jpg"},
		{SKU: "AC130", Name: "AC-130 Gunship", Description: "Heavily armed ground-attack gunship.", Price: 165_000_000, Stock: 2, Image: "ac130.jpg"},
	}
}
