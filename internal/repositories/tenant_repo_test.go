package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var tenantRowColumns = []string{"id", "slug", "name", "plan", "status", "trial_ends_at", "max_users", "max_products", "created_at", "updated_at"}

func int64Ptr(v int64) *int64 { return &v }

type TenantRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    TenantRepository
	context context.Context
}

func (suite *TenantRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewTenantRepo(mock)
	suite.context = context.Background()
}

func (suite *TenantRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestTenantRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TenantRepoTestSuite))
}

func (suite *TenantRepoTestSuite) TestGetBySlug_Success() {
	id := uuid.New()
	trialEnds := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	suite.mock.ExpectQuery(regexp.QuoteMeta(tenantBySlugQuery)).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(tenantRowColumns).
			AddRow(id, "acme", "Acme Corp", "basic", "active", &trialEnds, int64Ptr(5), (*int64)(nil), now, now))

	tenant, err := suite.repo.GetBySlug(suite.context, "acme")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, tenant.ID)
	assert.Equal(suite.T(), "basic", tenant.Plan)
	require.NotNil(suite.T(), tenant.TrialEndsAt)
	assert.Equal(suite.T(), trialEnds, *tenant.TrialEndsAt)
	require.NotNil(suite.T(), tenant.MaxUsers)
	assert.Equal(suite.T(), int64(5), *tenant.MaxUsers)
	assert.Nil(suite.T(), tenant.MaxProducts)
}

func (suite *TenantRepoTestSuite) TestGetBySlug_NotFound() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(tenantBySlugQuery)).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetBySlug(suite.context, "ghost")

	assert.ErrorIs(suite.T(), err, ErrTenantNotFound)
}

func (suite *TenantRepoTestSuite) TestGetBySlug_DatabaseError() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(tenantBySlugQuery)).
		WithArgs("acme").
		WillReturnError(errors.New("connection reset"))

	_, err := suite.repo.GetBySlug(suite.context, "acme")

	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, ErrTenantNotFound)
}

func (suite *TenantRepoTestSuite) TestListActive() {
	now := time.Now()
	suite.mock.ExpectQuery(regexp.QuoteMeta(activeTenantsQuery)).
		WillReturnRows(pgxmock.NewRows(tenantRowColumns).
			AddRow(uuid.New(), "acme", "Acme", "basic", "active", (*time.Time)(nil), (*int64)(nil), (*int64)(nil), now, now).
			AddRow(uuid.New(), "globex", "Globex", "premium", "active", (*time.Time)(nil), (*int64)(nil), (*int64)(nil), now, now))

	tenants, err := suite.repo.ListActive(suite.context)

	require.NoError(suite.T(), err)
	require.Len(suite.T(), tenants, 2)
	assert.Equal(suite.T(), "acme", tenants[0].Slug)
	assert.Equal(suite.T(), "globex", tenants[1].Slug)
}

func (suite *TenantRepoTestSuite) TestCreate_Duplicate() {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Name: "Acme", Plan: "trial", Status: models.TenantStatusActive}

	suite.mock.ExpectExec(regexp.QuoteMeta(insertTenantQuery)).
		WithArgs(tenant.ID, tenant.Slug, tenant.Name, tenant.Plan, tenant.Status, tenant.TrialEndsAt, tenant.MaxUsers, tenant.MaxProducts).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := suite.repo.Create(suite.context, tenant)

	assert.ErrorIs(suite.T(), err, ErrDuplicate)
}
