// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"craftpos/internal/core/id"
	"craftpos/internal/core/types"
	"craftpos/internal/domain/auth"
	"craftpos/internal/domain/catalog/customer"
	"craftpos/internal/domain/catalog/product"
	"craftpos/internal/domain/inventory"
	"craftpos/internal/infrastructure/storage/postgres"
	"craftpos/internal/infrastructure/storage/postgres/auth_repo"
	"craftpos/internal/infrastructure/storage/postgres/catalog_repo"
	"craftpos/internal/infrastructure/storage/postgres/inventory_repo"
	"craftpos/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	if err := seedAdminUser(ctx, pool, auth_repo.NewUserRepo(txManager), log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, users *auth_repo.UserRepo, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@craftpos.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := auth.NewUser(adminEmail, string(passwordHash), "System Admin", "admin")
	admin.IsAdmin = true

	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", admin.ID)
	return nil
}

func seedDemoData(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	products := catalog_repo.NewProductRepo(txManager)
	customers := catalog_repo.NewCustomerRepo(txManager)
	batches := inventory_repo.NewBatchRepo(txManager)

	branchID := id.New()
	log.Infow("demo branch", "branch_id", branchID)

	// Catalog: a finished good, a batch-tracked raw material, and a
	// manufactured product that consumes the raw material through a recipe.
	chair := product.NewProduct("FURN-001", "Oak Chair", product.TypeStandard, types.MustFromString("120.00"))
	oakPlank := product.NewProduct("RAW-OAK", "Oak Plank", product.TypeRawTracked, types.MustFromString("8.50"))
	table := product.NewProduct("FURN-010", "Oak Dining Table", product.TypeManufacturedVirtual, types.MustFromString("640.00"))

	for _, p := range []*product.Product{chair, oakPlank, table} {
		if err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", p.Code, err)
		}
	}

	// One table consumes 12 planks.
	recipe := product.NewRecipe(table.ID, oakPlank.ID, types.MustFromString("12"))
	if err := products.CreateRecipe(ctx, recipe); err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}

	cust := customer.NewCustomer("CUST-001", "Riverside Workshop")
	if err := customers.Create(ctx, cust); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}

	agent := customer.NewAgent("Jordan Reyes", types.MustFromString("2.5"))
	if err := customers.CreateAgent(ctx, agent); err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	// Two dated lots so demo sales exercise oldest-first consumption.
	seedBatches := []*inventory.Batch{
		inventory.NewBatch(oakPlank.ID, branchID, "LOT-2401", types.MustFromString("200")),
		inventory.NewBatch(oakPlank.ID, branchID, "LOT-2402", types.MustFromString("350")),
		inventory.NewBatch(chair.ID, branchID, "LOT-CH-01", types.MustFromString("40")),
	}
	for _, b := range seedBatches {
		if err := batches.Create(ctx, b); err != nil {
			return fmt.Errorf("create batch %s: %w", b.BatchNumber, err)
		}
	}

	log.Infow("demo data created",
		"products", 3,
		"batches", len(seedBatches),
		"customer", cust.Code,
		"agent", agent.Name,
	)
	return nil
}
