package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/logging"
	"stockflow/internal/metrics"
	"stockflow/internal/models"
	"stockflow/internal/tenancy"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testPlans = `
default_plan: basic
plans:
  basic:
    name: Basic
    max_users: 3
    max_products: 5
  enterprise:
    name: Enterprise
    max_users: -1
    max_products: -1
`

func mustPlans(t require.TestingT) *config.PlanCatalog {
	catalog, err := config.ParsePlans([]byte(testPlans))
	require.NoError(t, err)
	return catalog
}

// tenantCtx returns a context whose slot holds tenantID.
func tenantCtx(tenantID string) context.Context {
	ctx, slot := tenancy.NewContext(context.Background())
	slot.Set(tenantID)
	return ctx
}

type SubscriptionGuardTestSuite struct {
	suite.Suite
	users    *MockUserRepository
	products *MockProductRepository
	tenants  *fakeTenants
	metrics  *metrics.Metrics
	guard    *SubscriptionGuard
	now      time.Time
}

func (suite *SubscriptionGuardTestSuite) SetupTest() {
	suite.users = &MockUserRepository{}
	suite.products = &MockProductRepository{}
	suite.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	past := suite.now.Add(-time.Hour)
	future := suite.now.Add(72 * time.Hour)

	suite.tenants = newFakeTenants(
		&models.Tenant{ID: uuid.New(), Slug: "acme", Plan: "basic", TrialEndsAt: &future},
		&models.Tenant{ID: uuid.New(), Slug: "globex", Plan: "enterprise"},
		&models.Tenant{ID: uuid.New(), Slug: "initech", Plan: "basic", MaxProducts: int64Ptr(10)},
		&models.Tenant{ID: uuid.New(), Slug: "expired", Plan: "basic", TrialEndsAt: &past},
		&models.Tenant{ID: uuid.New(), Slug: "legacy", Plan: "gold"},
	)
	suite.metrics = metrics.New()
	suite.guard = NewSubscriptionGuard(suite.tenants, suite.users, suite.products, mustPlans(suite.T()), suite.metrics, logging.Discard())
	suite.guard.now = func() time.Time { return suite.now }
}

func (suite *SubscriptionGuardTestSuite) TearDownTest() {
	suite.users.AssertExpectations(suite.T())
	suite.products.AssertExpectations(suite.T())
}

func TestSubscriptionGuardTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionGuardTestSuite))
}

func int64Ptr(v int64) *int64 { return &v }

func (suite *SubscriptionGuardTestSuite) TestProductCapReached() {
	ctx := tenantCtx("acme")
	suite.products.On("CountActiveByTenant", mock.Anything, "acme").Return(int64(5), nil)

	assert.False(suite.T(), suite.guard.CanCreateProduct(ctx))

	called := false
	err := suite.guard.GuardProductCreation(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.False(suite.T(), called)
	var limitErr *LimitExceededError
	require.ErrorAs(suite.T(), err, &limitErr)
	assert.ErrorIs(suite.T(), err, ErrLimitExceeded)
	assert.Equal(suite.T(), ResourceProduct, limitErr.Resource)
	assert.Equal(suite.T(), int64(5), limitErr.Limit)
	assert.Contains(suite.T(), limitErr.Message, "Product limit reached")
	assert.Equal(suite.T(), 2.0, testutil.ToFloat64(suite.metrics.SubscriptionDecision.WithLabelValues("product", "rejected")))
}

func (suite *SubscriptionGuardTestSuite) TestProductBelowCap() {
	ctx := tenantCtx("acme")
	suite.products.On("CountActiveByTenant", mock.Anything, "acme").Return(int64(4), nil)

	assert.True(suite.T(), suite.guard.CanCreateProduct(ctx))

	called := false
	err := suite.guard.GuardProductCreation(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), called)
}

func (suite *SubscriptionGuardTestSuite) TestOperationErrorPassesThrough() {
	ctx := tenantCtx("acme")
	suite.users.On("CountActiveByTenant", mock.Anything, "acme").Return(int64(0), nil)

	err := suite.guard.GuardUserCreation(ctx, func(context.Context) error { return errDatabase })
	assert.ErrorIs(suite.T(), err, errDatabase)
}

func (suite *SubscriptionGuardTestSuite) TestUserCapReached() {
	ctx := tenantCtx("acme")
	suite.users.On("CountActiveByTenant", mock.Anything, "acme").Return(int64(3), nil)

	assert.False(suite.T(), suite.guard.CanCreateUser(ctx))
	err := suite.guard.GuardUserCreation(ctx, func(context.Context) error {
		suite.Fail("operation must not run")
		return nil
	})
	var limitErr *LimitExceededError
	require.ErrorAs(suite.T(), err, &limitErr)
	assert.Equal(suite.T(), ResourceUser, limitErr.Resource)
}

func (suite *SubscriptionGuardTestSuite) TestUnlimitedPlanSkipsCount() {
	ctx := tenantCtx("globex")

	assert.True(suite.T(), suite.guard.CanCreateUser(ctx))
	assert.True(suite.T(), suite.guard.CanCreateProduct(ctx))
	suite.users.AssertNotCalled(suite.T(), "CountActiveByTenant", mock.Anything, mock.Anything)
}

func (suite *SubscriptionGuardTestSuite) TestTenantOverrideWins() {
	ctx := tenantCtx("initech")
	suite.products.On("CountActiveByTenant", mock.Anything, "initech").Return(int64(5), nil)

	assert.True(suite.T(), suite.guard.CanCreateProduct(ctx))
}

func (suite *SubscriptionGuardTestSuite) TestCountFailureFailsClosed() {
	ctx := tenantCtx("acme")
	suite.products.On("CountActiveByTenant", mock.Anything, "acme").Return(int64(0), errDatabase)

	assert.False(suite.T(), suite.guard.CanCreateProduct(ctx))
	err := suite.guard.GuardProductCreation(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(suite.T(), err, errDatabase)
	assert.NotErrorIs(suite.T(), err, ErrLimitExceeded)
}

func (suite *SubscriptionGuardTestSuite) TestLookupFailuresFailClosed() {
	assert.False(suite.T(), suite.guard.CanCreateProduct(context.Background()))
	assert.ErrorIs(suite.T(),
		suite.guard.GuardProductCreation(context.Background(), func(context.Context) error { return nil }),
		tenancy.ErrMissingTenant)

	assert.False(suite.T(), suite.guard.CanCreateUser(tenantCtx("unknown")))
	assert.False(suite.T(), suite.guard.CanCreateUser(tenantCtx("legacy")))

	suite.tenants.err = errors.New("cache down")
	assert.False(suite.T(), suite.guard.CanCreateUser(tenantCtx("acme")))
}

func (suite *SubscriptionGuardTestSuite) TestExpiredTrialBlocksCreation() {
	ctx := tenantCtx("expired")
	called := false

	err := suite.guard.GuardProductCreation(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(suite.T(), err, ErrTrialExpired)
	assert.False(suite.T(), called)
	assert.False(suite.T(), suite.guard.CanCreateUser(ctx))
	assert.Equal(suite.T(), float64(1), testutil.ToFloat64(suite.metrics.SubscriptionDecision.WithLabelValues(ResourceProduct, "trial_expired")))
	suite.products.AssertNotCalled(suite.T(), "CountActiveByTenant", mock.Anything, mock.Anything)
}

func (suite *SubscriptionGuardTestSuite) TestIsTrialExpired() {
	ctx := context.Background()

	expired, err := suite.guard.IsTrialExpired(ctx, "expired")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), expired)

	expired, err = suite.guard.IsTrialExpired(ctx, "acme")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), expired)

	expired, err = suite.guard.IsTrialExpired(ctx, "globex")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), expired)

	_, err = suite.guard.IsTrialExpired(ctx, "unknown")
	assert.Error(suite.T(), err)
}

func (suite *SubscriptionGuardTestSuite) TestUsage() {
	ctx := tenantCtx("initech")
	suite.users.On("CountActiveByTenant", mock.Anything, "initech").Return(int64(2), nil)
	suite.products.On("CountActiveByTenant", mock.Anything, "initech").Return(int64(7), nil)

	report, err := suite.guard.Usage(ctx)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "initech", report.TenantID)
	assert.Equal(suite.T(), models.Usage{Current: 2, Limit: 3}, report.Users)
	assert.Equal(suite.T(), models.Usage{Current: 7, Limit: 10}, report.Products)
	assert.False(suite.T(), report.TrialExpired)
}
