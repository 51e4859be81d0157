package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
	Logger    zerolog.Logger
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Create connection pool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
		Logger:    zerolog.Nop(),
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS businesses (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			partner BOOLEAN NOT NULL DEFAULT false,
			lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			lon DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id),
			name VARCHAR(255) NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0),
			category VARCHAR(100) NOT NULL,
			available BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS product_add_ons (
			id UUID PRIMARY KEY,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0)
		);

		CREATE TABLE IF NOT EXISTS drivers (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(50) NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_number VARCHAR(30) NOT NULL UNIQUE,
			user_id UUID NOT NULL,
			driver_id UUID REFERENCES drivers(id),
			order_type VARCHAR(20) NOT NULL,
			payment_method VARCHAR(20) NOT NULL,
			payment_status VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			address_line VARCHAR(255),
			address_city VARCHAR(100),
			address_lat DOUBLE PRECISION,
			address_lon DOUBLE PRECISION,
			total_amount BIGINT NOT NULL,
			discount_amount BIGINT NOT NULL DEFAULT 0,
			platform_fee BIGINT NOT NULL DEFAULT 0,
			delivery_fee BIGINT NOT NULL DEFAULT 0,
			final_amount BIGINT NOT NULL,
			qr_token VARCHAR(128),
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id),
			business_id UUID NOT NULL REFERENCES businesses(id),
			name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price BIGINT NOT NULL,
			total_price BIGINT NOT NULL,
			add_ons JSONB
		);

		CREATE TABLE IF NOT EXISTS wallets (
			user_id UUID PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			currency VARCHAR(3) NOT NULL DEFAULT 'COP',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			transaction_type VARCHAR(20) NOT NULL,
			reference_type VARCHAR(20) NOT NULL,
			reference_id VARCHAR(100) NOT NULL,
			amount BIGINT NOT NULL,
			payment_method VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			description VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS points_entries (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			points_earned INTEGER NOT NULL DEFAULT 0,
			points_spent INTEGER NOT NULL DEFAULT 0,
			balance INTEGER NOT NULL,
			activity_type VARCHAR(50) NOT NULL,
			reference_id VARCHAR(100) NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS qr_codes (
			token VARCHAR(128) PRIMARY KEY,
			qr_type VARCHAR(20) NOT NULL,
			reference_id VARCHAR(100) NOT NULL,
			metadata JSONB,
			expires_at TIMESTAMPTZ NOT NULL,
			is_used BOOLEAN NOT NULL DEFAULT false,
			used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
		CREATE INDEX IF NOT EXISTS idx_transactions_reference ON transactions(reference_type, reference_id);
		CREATE INDEX IF NOT EXISTS idx_points_entries_user_id ON points_entries(user_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// Catalog holds the IDs of the seeded test fixtures.
type Catalog struct {
	BusinessID  uuid.UUID
	BusinessID2 uuid.UUID
	DriverID    uuid.UUID
	ProductIDs  []string
}

// SeedCatalog inserts two businesses, products, a driver and returns their IDs.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) Catalog {
	t.Helper()

	ctx := context.Background()
	cat := Catalog{
		BusinessID:  uuid.New(),
		BusinessID2: uuid.New(),
		DriverID:    uuid.New(),
		ProductIDs:  []string{"P001", "P002", "P003"},
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO businesses (id, name, active, partner, lat, lon) VALUES
			($1, 'Test Business A', true, false, 4.6510, -74.0550),
			($2, 'Test Business B', true, true, 4.6700, -74.0600)`,
		cat.BusinessID, cat.BusinessID2,
	)
	if err != nil {
		t.Fatalf("failed to seed businesses: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO products (id, business_id, name, price, category, available) VALUES
			('P001', $1, 'Test Product 1', 5000, 'Category A', true),
			('P002', $1, 'Test Product 2', 2500, 'Category B', true),
			('P003', $2, 'Test Product 3', 10000, 'Category A', true)`,
		cat.BusinessID, cat.BusinessID2,
	)
	if err != nil {
		t.Fatalf("failed to seed products: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO product_add_ons (id, product_id, name, price) VALUES
			($1, 'P001', 'Extra Cheese', 500),
			($2, 'P001', 'Large', 1000)`,
		uuid.New(), uuid.New(),
	)
	if err != nil {
		t.Fatalf("failed to seed add-ons: %v", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO drivers (id, name, phone, active) VALUES ($1, 'Test Driver', '+573001234567', true)`,
		cat.DriverID,
	)
	if err != nil {
		t.Fatalf("failed to seed driver: %v", err)
	}

	return cat
}

// SeedWallet creates a wallet with the given opening balance.
func SeedWallet(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, balance int64) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO wallets (user_id, balance) VALUES ($1, $2)`,
		userID, balance,
	)
	if err != nil {
		t.Fatalf("failed to seed wallet: %v", err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"qr_codes", "points_entries", "transactions", "wallets",
		"order_items", "orders", "subscriptions", "drivers",
		"product_add_ons", "products", "businesses",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Fatalf("failed to cleanup table %s: %v", table, err)
		}
	}
}
