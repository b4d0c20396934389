package repositories

import (
	"context"
	"fmt"

	"stockflow/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	CountActiveByTenant(ctx context.Context, tenantSlug string) (int64, error)
}

type productRepo struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

const (
	insertProductQuery = `
		INSERT INTO products (id, tenant_id, name, sku, quantity, unit_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`

	countActiveProductsQuery = `
		SELECT COUNT(*)
		FROM products p
		JOIN tenants t ON t.id = p.tenant_id
		WHERE t.slug = $1 AND p.status = 'active'
	`
)

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	_, err := r.db.Exec(ctx, insertProductQuery,
		product.ID, product.TenantID, product.Name, product.SKU, product.Quantity, product.UnitPrice, product.Status)
	if isUniqueViolation(err) {
		return fmt.Errorf("product sku: %w", ErrDuplicate)
	}
	return err
}

func (r *productRepo) CountActiveByTenant(ctx context.Context, tenantSlug string) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countActiveProductsQuery, tenantSlug).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
