package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avaldezco/sazonpos-backend/api/routes"
	"github.com/avaldezco/sazonpos-backend/internal/auth"
	"github.com/avaldezco/sazonpos-backend/internal/cart"
	"github.com/avaldezco/sazonpos-backend/internal/checkout"
	"github.com/avaldezco/sazonpos-backend/internal/customers"
	"github.com/avaldezco/sazonpos-backend/internal/inventory"
	"github.com/avaldezco/sazonpos-backend/internal/library"
	"github.com/avaldezco/sazonpos-backend/internal/menu"
	"github.com/avaldezco/sazonpos-backend/internal/messages"
	"github.com/avaldezco/sazonpos-backend/internal/orders"
	"github.com/avaldezco/sazonpos-backend/internal/reports"
	"github.com/avaldezco/sazonpos-backend/internal/staff"
	"github.com/avaldezco/sazonpos-backend/pkg/auth/session"
	"github.com/avaldezco/sazonpos-backend/pkg/config"
	"github.com/avaldezco/sazonpos-backend/pkg/db"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"github.com/avaldezco/sazonpos-backend/pkg/metrics"
	"github.com/avaldezco/sazonpos-backend/pkg/migrate"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/redis"
	"github.com/avaldezco/sazonpos-backend/pkg/square"
	"github.com/avaldezco/sazonpos-backend/pkg/storage/gcs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	staffRepo := staff.NewRepository(dbClient.DB())
	customersRepo := customers.NewRepository(dbClient.DB())
	menuRepo := menu.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	libraryRepo := library.NewRepository(dbClient.DB())
	messagesRepo := messages.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       staffRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Cart.SnapshotTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartSessions, err := cart.NewSessions(cartStore, logg, cart.EngineOptions{
		FlushDelay:        cfg.Cart.FlushDelay,
		ExactMatchLookups: cfg.Cart.ExactMatchLookups,
		Metrics:           metrics.NewCartMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart sessions", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		cartSessions,
		ordersRepo,
		menuRepo,
		dbClient,
		redisClient,
		squareClient,
		customersRepo,
		outboxService,
		cfg.Square.LocationID,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	menuService, err := menu.NewService(menuRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create menu service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	staffService, err := staff.NewService(staffRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create staff service", err)
		os.Exit(1)
	}

	customersService, err := customers.NewService(customersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create customers service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService, squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	libraryService, err := library.NewService(
		libraryRepo,
		gcsClient,
		cfg.GCS.BucketName,
		cfg.GCS.UploadURLExpiry,
		cfg.GCS.DownloadURLExpiry,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create library service", err)
		os.Exit(1)
	}

	messagesService, err := messages.NewService(messagesRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create messages service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Redis:      redisClient,
		DBPinger:   dbClient,
		GCS:        gcsClient,
		Sessions:   sessionManager,
		Auth:       authService,
		Cart:       cartSessions,
		Checkout:   checkoutService,
		Menu:       menuService,
		Inventory:  inventoryService,
		Staff:      staffService,
		Customers:  customersService,
		Orders:     ordersService,
		OrdersRepo: ordersRepo,
		Library:    libraryService,
		Messages:   messagesService,
		Reports:    reportsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
		// Flush carts still inside the debounce window before exiting.
		if err := cartSessions.Close(shutdownCtx); err != nil {
			logg.Error(ctx, "cart flush on shutdown failed", err)
		}
	}
}
