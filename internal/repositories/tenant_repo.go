package repositories

import (
	"context"
	"errors"
	"fmt"

	"stockflow/internal/models"

	"github.com/jackc/pgx/v5"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	ListActive(ctx context.Context) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db DBTX
}

func NewTenantRepo(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

const (
	tenantColumns = `id, slug, name, plan, status, trial_ends_at, max_users, max_products, created_at, updated_at`

	insertTenantQuery = `
		INSERT INTO tenants (id, slug, name, plan, status, trial_ends_at, max_users, max_products, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`

	tenantBySlugQuery = `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`

	activeTenantsQuery = `SELECT ` + tenantColumns + ` FROM tenants WHERE status = 'active' ORDER BY slug`
)

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	_, err := r.db.Exec(ctx, insertTenantQuery,
		tenant.ID, tenant.Slug, tenant.Name, tenant.Plan, tenant.Status,
		tenant.TrialEndsAt, tenant.MaxUsers, tenant.MaxProducts)
	if isUniqueViolation(err) {
		return fmt.Errorf("tenant %q: %w", tenant.Slug, ErrDuplicate)
	}
	return err
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	tenant, err := scanTenant(r.db.QueryRow(ctx, tenantBySlugQuery, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", slug, err)
	}
	return tenant, nil
}

func (r *tenantRepo) ListActive(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.db.Query(ctx, activeTenantsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(&tenant.ID, &tenant.Slug, &tenant.Name, &tenant.Plan, &tenant.Status,
		&tenant.TrialEndsAt, &tenant.MaxUsers, &tenant.MaxProducts, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
