package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stockflow/internal/models"
	"stockflow/internal/tenancy"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"
)

const refreshConcurrency = 5

// TenantLister lists tenants whose records should stay warm.
type TenantLister interface {
	ListActive(ctx context.Context) ([]*models.Tenant, error)
}

// TenantRefresher reloads one tenant record. Satisfied by caching.TenantCache.
type TenantRefresher interface {
	Refresh(ctx context.Context, slug string) (*models.Tenant, error)
}

// UsageReporter reports the current tenant's usage.
type UsageReporter interface {
	Usage(ctx context.Context) (*models.UsageReport, error)
}

// JobScheduler runs the background tenant maintenance jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	tenants   TenantLister
	cache     TenantRefresher
	usage     UsageReporter
	logger    *slog.Logger
}

// NewJobScheduler creates a scheduler that refreshes every active tenant
// every interval.
func NewJobScheduler(tenants TenantLister, cache TenantRefresher, usage UsageReporter, interval time.Duration, logger *slog.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		tenants:   tenants,
		cache:     cache,
		usage:     usage,
		logger:    logger,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.RefreshTenants, context.Background()),
		gocron.WithName("tenant-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register tenant refresh job: %w", err)
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// RefreshTenants reloads every active tenant into the cache, each inside its
// own tenant scope, and logs tenants that hit a cap or whose trial ended.
// A failure for one tenant does not stop the others.
func (js *JobScheduler) RefreshTenants(ctx context.Context) error {
	start := time.Now()
	tenants, err := js.tenants.ListActive(ctx)
	if err != nil {
		js.logger.ErrorContext(ctx, "failed to list tenants for refresh", "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, tenant := range tenants {
		g.Go(func() error {
			err := tenancy.RunAs(gctx, tenant.Slug, js.refreshTenant)
			if err != nil {
				js.logger.WarnContext(gctx, "tenant refresh failed", "tenant", tenant.Slug, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	js.logger.InfoContext(ctx, "tenant refresh completed",
		"tenants", len(tenants), "duration", time.Since(start))
	return nil
}

func (js *JobScheduler) refreshTenant(ctx context.Context) error {
	slug, err := tenancy.Require(ctx)
	if err != nil {
		return err
	}
	if _, err := js.cache.Refresh(ctx, slug); err != nil {
		return err
	}

	report, err := js.usage.Usage(ctx)
	if err != nil {
		return err
	}
	if report.TrialExpired {
		js.logger.InfoContext(ctx, "tenant trial has expired", "plan", report.Plan)
	}
	if atLimit(report.Users) || atLimit(report.Products) {
		js.logger.InfoContext(ctx, "tenant at subscription limit",
			"plan", report.Plan,
			"users", report.Users.Current, "max_users", report.Users.Limit,
			"products", report.Products.Current, "max_products", report.Products.Limit)
	}
	return nil
}

func atLimit(u models.Usage) bool {
	return u.Limit >= 0 && u.Current >= u.Limit
}
