package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockflow/internal/config"
	"stockflow/internal/models"
	"stockflow/internal/tenancy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListActive(ctx context.Context) ([]*models.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type TenantServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockTenantRepository
	mockUsers *MockUserService
	service   *tenantService
	now       time.Time
}

func (suite *TenantServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockTenantRepository)
	suite.mockUsers = new(MockUserService)
	suite.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	plans, err := config.ParsePlans([]byte(`
default_plan: trial
plans:
  trial:
    max_users: 3
    max_products: 25
    trial_days: 14
  basic:
    max_users: 5
    max_products: 500
`))
	require.NoError(suite.T(), err)

	svc := NewTenantService(suite.mockRepo, suite.mockUsers, plans).(*tenantService)
	svc.now = func() time.Time { return suite.now }
	suite.service = svc
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}

func (suite *TenantServiceTestSuite) TestCreate_DefaultPlanStartsTrial() {
	suite.mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Tenant")).Return(nil)

	tenant, err := suite.service.Create(context.Background(), &CreateTenantRequest{Slug: "Acme", Name: "Acme Corp"})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "acme", tenant.Slug)
	assert.Equal(suite.T(), "trial", tenant.Plan)
	assert.Equal(suite.T(), models.TenantStatusActive, tenant.Status)
	require.NotNil(suite.T(), tenant.TrialEndsAt)
	assert.Equal(suite.T(), suite.now.AddDate(0, 0, 14), *tenant.TrialEndsAt)
	suite.mockUsers.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *TenantServiceTestSuite) TestCreate_PaidPlanHasNoTrial() {
	suite.mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Tenant")).Return(nil)

	tenant, err := suite.service.Create(context.Background(), &CreateTenantRequest{Slug: "globex", Plan: "basic"})

	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), tenant.TrialEndsAt)
	assert.Equal(suite.T(), "globex", tenant.Name)
}

func (suite *TenantServiceTestSuite) TestCreate_AdminCreatedInsideNewTenant() {
	admin := &models.CreateUserRequest{Username: "admin", Email: "admin@acme.test", Password: "long-password", Roles: []string{models.RoleAdmin}}
	suite.mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Tenant")).Return(nil)
	suite.mockUsers.On("Create", inTenant("acme"), admin).Return(&models.User{Username: "admin"}, nil).Once()

	ctx, slot := tenancy.NewContext(context.Background())
	slot.Set("operator")

	_, err := suite.service.Create(ctx, &CreateTenantRequest{Slug: "acme", Admin: admin})

	require.NoError(suite.T(), err)
	suite.mockUsers.AssertExpectations(suite.T())
	current, _ := slot.Get()
	assert.Equal(suite.T(), "operator", current)
}

func (suite *TenantServiceTestSuite) TestCreate_AdminFailureReturnsTenant() {
	suite.mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Tenant")).Return(nil)
	suite.mockUsers.On("Create", mock.Anything, mock.Anything).Return(nil, &ValidationError{Field: "password", Message: "too short"})

	tenant, err := suite.service.Create(context.Background(), &CreateTenantRequest{
		Slug:  "acme",
		Admin: &models.CreateUserRequest{Username: "admin"},
	})

	assert.ErrorIs(suite.T(), err, ErrValidation)
	assert.NotNil(suite.T(), tenant)
}

func (suite *TenantServiceTestSuite) TestCreate_Validation() {
	for _, req := range []*CreateTenantRequest{
		{Slug: ""},
		{Slug: "has space"},
		{Slug: "public"},
		{Slug: "acme", Plan: "gold"},
	} {
		_, err := suite.service.Create(context.Background(), req)
		assert.ErrorIs(suite.T(), err, ErrValidation, req.Slug)
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *TenantServiceTestSuite) TestCreate_RepositoryError() {
	suite.mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate"))

	_, err := suite.service.Create(context.Background(), &CreateTenantRequest{Slug: "acme"})

	assert.Error(suite.T(), err)
}
