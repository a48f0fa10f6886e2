// Package main is the entry point for the craftpos API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"craftpos/internal/domain/auth"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/domain/ledger"
	"craftpos/internal/domain/sales"
	v1 "craftpos/internal/infrastructure/http/v1"
	"craftpos/internal/infrastructure/http/v1/handlers"
	"craftpos/internal/infrastructure/storage/postgres"
	"craftpos/internal/infrastructure/storage/postgres/auth_repo"
	"craftpos/internal/infrastructure/storage/postgres/catalog_repo"
	"craftpos/internal/infrastructure/storage/postgres/inventory_repo"
	"craftpos/internal/infrastructure/storage/postgres/ledger_repo"
	"craftpos/internal/infrastructure/storage/postgres/notification_repo"
	"craftpos/internal/infrastructure/storage/postgres/sales_repo"
	"craftpos/pkg/invoiceno"
	"craftpos/pkg/logger"
)

const version = "1.0.0"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting craftpos server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	userRepo := auth_repo.NewUserRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	customerRepo := catalog_repo.NewCustomerRepo(txManager)
	batchRepo := inventory_repo.NewBatchRepo(txManager)
	orderRepo := sales_repo.NewOrderRepo(txManager)
	entryRepo := ledger_repo.NewEntryRepo(txManager)
	notificationRepo := notification_repo.NewNotificationRepo(txManager)

	// --- Services ---
	jwtSecret := mustEnv("JWT_SECRET")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(userRepo, jwtService, auth.DefaultServiceConfig())

	allocator := inventory.NewAllocator(batchRepo)
	inventoryService := inventory.NewService(batchRepo, txManager)
	ledgerService := ledger.NewService(entryRepo, customerRepo)
	invoiceNumbers := invoiceno.NewFromTxManager(txManager)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	salesService := sales.NewService(
		orderRepo,
		productRepo,
		customerRepo,
		allocator,
		ledgerService,
		notificationRepo,
		userRepo,
		invoiceNumbers,
		txManager,
		auditService,
	)

	// --- Router ---
	base := handlers.NewBaseHandler()
	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		JWTValidator:  jwtService,
		Health:        handlers.NewHealthHandler(pool.Unwrap(), version),
		Auth:          handlers.NewAuthHandler(base, authService),
		Sales:         handlers.NewSalesHandler(base, salesService, auditService),
		Inventory:     handlers.NewInventoryHandler(base, inventoryService),
		Catalog:       handlers.NewCatalogHandler(base, productRepo, customerRepo),
		Ledger:        handlers.NewLedgerHandler(base, ledgerService),
		Notifications: handlers.NewNotificationHandler(base, notificationRepo),
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
