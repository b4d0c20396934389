package repositories

import (
	"context"
	"regexp"
	"testing"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ProductRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ProductRepository
	context context.Context
}

func (suite *ProductRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewProductRepo(mock)
	suite.context = context.Background()
}

func (suite *ProductRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestProductRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRepoTestSuite))
}

func (suite *ProductRepoTestSuite) newProduct() *models.Product {
	sku := "SKU-1"
	return &models.Product{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Name:      "Fertilizer",
		SKU:       &sku,
		Quantity:  10,
		UnitPrice: 4.5,
		Status:    models.ProductStatusActive,
	}
}

func (suite *ProductRepoTestSuite) TestCreate_Success() {
	p := suite.newProduct()
	suite.mock.ExpectExec(regexp.QuoteMeta(insertProductQuery)).
		WithArgs(p.ID, p.TenantID, p.Name, p.SKU, p.Quantity, p.UnitPrice, p.Status).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, p))
}

func (suite *ProductRepoTestSuite) TestCreate_DuplicateSKU() {
	p := suite.newProduct()
	suite.mock.ExpectExec(regexp.QuoteMeta(insertProductQuery)).
		WithArgs(p.ID, p.TenantID, p.Name, p.SKU, p.Quantity, p.UnitPrice, p.Status).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	assert.ErrorIs(suite.T(), suite.repo.Create(suite.context, p), ErrDuplicate)
}

func (suite *ProductRepoTestSuite) TestCountActiveByTenant_OnlyCountsOwnTenant() {
	suite.mock.ExpectQuery(regexp.QuoteMeta(countActiveProductsQuery)).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(5)))
	suite.mock.ExpectQuery(regexp.QuoteMeta(countActiveProductsQuery)).
		WithArgs("globex").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	acme, err := suite.repo.CountActiveByTenant(suite.context, "acme")
	require.NoError(suite.T(), err)
	globex, err := suite.repo.CountActiveByTenant(suite.context, "globex")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), int64(5), acme)
	assert.Equal(suite.T(), int64(0), globex)
}
