// Package testhelpers provides a migrated PostgreSQL database and fixtures
// for integration tests. Tests are skipped unless TEST_DATABASE_URL is set.
package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"stockflow/internal/logging"
	"stockflow/internal/models"
	"stockflow/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the migrations and
// empties every table when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, dsn, logging.Discard())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool, logging.Discard()); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), `TRUNCATE products, users, tenants CASCADE`); err != nil {
			t.Errorf("Failed to clean test database: %v", err)
		}
		pool.Close()
	})

	return &TestDB{Pool: pool}
}

// SetupTestTenant creates an active tenant on plan.
func SetupTestTenant(t *testing.T, db *TestDB, slug, plan string) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		ID:     uuid.New(),
		Slug:   slug,
		Name:   slug,
		Plan:   plan,
		Status: models.TenantStatusActive,
	}
	query := `INSERT INTO tenants (id, slug, name, plan, status) VALUES ($1, $2, $3, $4, $5)`
	_, err := db.Pool.Exec(context.Background(), query, tenant.ID, tenant.Slug, tenant.Name, tenant.Plan, tenant.Status)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenant
}

// SetupTestProduct creates a product with the given status in tenant.
func SetupTestProduct(t *testing.T, db *TestDB, tenant *models.Tenant, status string) *models.Product {
	t.Helper()

	now := time.Now()
	product := &models.Product{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Name:      "Test Product",
		Quantity:  100,
		UnitPrice: 10.99,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO products (id, tenant_id, name, quantity, unit_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.Pool.Exec(context.Background(), query,
		product.ID, product.TenantID, product.Name, product.Quantity, product.UnitPrice,
		product.Status, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}
