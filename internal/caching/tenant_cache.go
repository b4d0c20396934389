package caching

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/models"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// TenantLoader loads a tenant record by slug.
type TenantLoader interface {
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// TenantCache is an in-process cache of tenant records in front of the
// tenant repository. Concurrent misses for the same slug share one load.
type TenantCache struct {
	cache  *ristretto.Cache[string, *models.Tenant]
	loader TenantLoader
	ttl    time.Duration
	group  singleflight.Group
}

// NewTenantCache creates a cache holding up to maxTenants records for ttl.
func NewTenantCache(loader TenantLoader, maxTenants int64, ttl time.Duration) (*TenantCache, error) {
	if maxTenants <= 0 {
		maxTenants = 10_000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *models.Tenant]{
		NumCounters: maxTenants * 10,
		MaxCost:     maxTenants,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant cache: %w", err)
	}
	return &TenantCache{cache: c, loader: loader, ttl: ttl}, nil
}

// Get returns the tenant for slug from the cache, loading it on a miss.
func (c *TenantCache) Get(ctx context.Context, slug string) (*models.Tenant, error) {
	if tenant, ok := c.cache.Get(slug); ok {
		return tenant, nil
	}

	v, err, _ := c.group.Do(slug, func() (any, error) {
		tenant, err := c.loader.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(slug, tenant, 1, c.ttl)
		return tenant, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Tenant), nil
}

// Refresh reloads slug from the loader and replaces the cached record.
func (c *TenantCache) Refresh(ctx context.Context, slug string) (*models.Tenant, error) {
	tenant, err := c.loader.GetBySlug(ctx, slug)
	if err != nil {
		c.Invalidate(slug)
		return nil, err
	}
	c.Put(tenant)
	return tenant, nil
}

// Put stores tenant under its slug.
func (c *TenantCache) Put(tenant *models.Tenant) {
	c.cache.SetWithTTL(tenant.Slug, tenant, 1, c.ttl)
}

// Invalidate drops slug from the cache.
func (c *TenantCache) Invalidate(slug string) {
	c.cache.Del(slug)
}

// Wait blocks until buffered writes are applied.
func (c *TenantCache) Wait() {
	c.cache.Wait()
}

func (c *TenantCache) Close() {
	c.cache.Close()
}
