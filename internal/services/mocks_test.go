package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/tenancy"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, tenantSlug, username string) (*models.User, error) {
	args := m.Called(ctx, tenantSlug, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) CountActiveByTenant(ctx context.Context, tenantSlug string) (int64, error) {
	args := m.Called(ctx, tenantSlug)
	return args.Get(0).(int64), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) CountActiveByTenant(ctx context.Context, tenantSlug string) (int64, error) {
	args := m.Called(ctx, tenantSlug)
	return args.Get(0).(int64), args.Error(1)
}

var (
	_ repositories.UserRepository    = (*MockUserRepository)(nil)
	_ repositories.ProductRepository = (*MockProductRepository)(nil)
)

// fakeTenants is an in-memory TenantLookup.
type fakeTenants struct {
	mu      sync.Mutex
	tenants map[string]*models.Tenant
	err     error
}

func newFakeTenants(tenants ...*models.Tenant) *fakeTenants {
	f := &fakeTenants{tenants: map[string]*models.Tenant{}}
	for _, t := range tenants {
		f.tenants[t.Slug] = t
	}
	return f
}

func (f *fakeTenants) Get(_ context.Context, slug string) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tenants[slug]
	if !ok {
		return nil, repositories.ErrTenantNotFound
	}
	return t, nil
}

type MockAttemptLimiter struct {
	mock.Mock
}

func (m *MockAttemptLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptLimiter) Reset(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

var errDatabase = errors.New("database unavailable")

// inTenant matches a context whose current tenant is tenantID.
func inTenant(tenantID string) interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool {
		current, ok := tenancy.Current(ctx)
		return ok && current == tenantID
	})
}
