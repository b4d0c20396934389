package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stockflow/internal/logging"
	"stockflow/internal/models"
	"stockflow/internal/tenancy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockTenantLister struct {
	mock.Mock
}

func (m *MockTenantLister) ListActive(ctx context.Context) ([]*models.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

// recordingCache records the tenant in scope for every refresh.
type recordingCache struct {
	mu      sync.Mutex
	seen    map[string]string
	failFor string
}

func (c *recordingCache) Refresh(ctx context.Context, slug string) (*models.Tenant, error) {
	current, _ := tenancy.Current(ctx)
	c.mu.Lock()
	c.seen[slug] = current
	c.mu.Unlock()
	if slug == c.failFor {
		return nil, errors.New("tenant store unavailable")
	}
	return &models.Tenant{Slug: slug}, nil
}

type recordingUsage struct {
	mu      sync.Mutex
	tenants []string
}

func (u *recordingUsage) Usage(ctx context.Context) (*models.UsageReport, error) {
	tenantID, err := tenancy.Require(ctx)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.tenants = append(u.tenants, tenantID)
	u.mu.Unlock()
	return &models.UsageReport{TenantID: tenantID, Products: models.Usage{Current: 5, Limit: 5}}, nil
}

type JobSchedulerTestSuite struct {
	suite.Suite
	lister *MockTenantLister
	cache  *recordingCache
	usage  *recordingUsage
	js     *JobScheduler
}

func (suite *JobSchedulerTestSuite) SetupTest() {
	suite.lister = new(MockTenantLister)
	suite.cache = &recordingCache{seen: map[string]string{}}
	suite.usage = &recordingUsage{}

	js, err := NewJobScheduler(suite.lister, suite.cache, suite.usage, time.Hour, logging.Discard())
	require.NoError(suite.T(), err)
	suite.js = js
	suite.js.Start()
}

func (suite *JobSchedulerTestSuite) TearDownTest() {
	_ = suite.js.Stop()
}

func TestJobSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(JobSchedulerTestSuite))
}

func (suite *JobSchedulerTestSuite) TestRefreshRunsEachTenantInItsOwnScope() {
	suite.lister.On("ListActive", mock.Anything).Return([]*models.Tenant{
		{Slug: "acme"}, {Slug: "globex"}, {Slug: "initech"},
	}, nil)

	ctx, slot := tenancy.NewContext(context.Background())
	slot.Set("operator")

	err := suite.js.RefreshTenants(ctx)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), map[string]string{"acme": "acme", "globex": "globex", "initech": "initech"}, suite.cache.seen)
	assert.ElementsMatch(suite.T(), []string{"acme", "globex", "initech"}, suite.usage.tenants)

	current, ok := slot.Get()
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "operator", current)
}

func (suite *JobSchedulerTestSuite) TestOneFailureDoesNotStopOthers() {
	suite.cache.failFor = "globex"
	suite.lister.On("ListActive", mock.Anything).Return([]*models.Tenant{{Slug: "acme"}, {Slug: "globex"}}, nil)

	err := suite.js.RefreshTenants(context.Background())

	require.NoError(suite.T(), err)
	assert.Len(suite.T(), suite.cache.seen, 2)
	assert.Equal(suite.T(), []string{"acme"}, suite.usage.tenants)
}

func (suite *JobSchedulerTestSuite) TestListFailure() {
	suite.lister.On("ListActive", mock.Anything).Return(nil, errors.New("db down"))

	err := suite.js.RefreshTenants(context.Background())

	assert.Error(suite.T(), err)
	assert.Empty(suite.T(), suite.cache.seen)
}

func TestAtLimit(t *testing.T) {
	assert.True(t, atLimit(models.Usage{Current: 5, Limit: 5}))
	assert.False(t, atLimit(models.Usage{Current: 4, Limit: 5}))
	assert.False(t, atLimit(models.Usage{Current: 500, Limit: -1}))
}
