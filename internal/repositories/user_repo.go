package repositories

import (
	"context"
	"errors"
	"fmt"

	"stockflow/internal/models"

	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, tenantSlug, username string) (*models.User, error)
	CountActiveByTenant(ctx context.Context, tenantSlug string) (int64, error)
}

type userRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const (
	insertUserQuery = `
		INSERT INTO users (id, tenant_id, username, email, password_hash, roles, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`

	userByUsernameQuery = `
		SELECT u.id, u.tenant_id, u.username, u.email, u.password_hash, u.roles, u.status, u.created_at, u.updated_at
		FROM users u
		JOIN tenants t ON t.id = u.tenant_id
		WHERE t.slug = $1 AND u.username = $2
	`

	countActiveUsersQuery = `
		SELECT COUNT(*)
		FROM users u
		JOIN tenants t ON t.id = u.tenant_id
		WHERE t.slug = $1 AND u.status = 'active'
	`
)

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.Exec(ctx, insertUserQuery,
		user.ID, user.TenantID, user.Username, user.Email, user.PasswordHash, user.Roles, user.Status)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
	}
	return err
}

// GetByUsername looks the user up within a single tenant; usernames are
// only unique per tenant.
func (r *userRepo) GetByUsername(ctx context.Context, tenantSlug, username string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx, userByUsernameQuery, tenantSlug, username).Scan(
		&user.ID, &user.TenantID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Roles, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) CountActiveByTenant(ctx context.Context, tenantSlug string) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, countActiveUsersQuery, tenantSlug).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
