package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stockflow/internal/caching"
	"stockflow/internal/config"
	"stockflow/internal/metrics"
	"stockflow/internal/models"
	"stockflow/internal/repositories"
	"stockflow/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	var (
		req   services.CreateTenantRequest
		admin models.CreateUserRequest
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant on a plan together with its first administrator",
		RunE: withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger, _ []string) error {
			plans, err := config.LoadPlans(cfg.Tenancy.PlansFile)
			if err != nil {
				return err
			}

			tenantRepo := repositories.NewTenantRepo(pool)
			userRepo := repositories.NewUserRepo(pool)
			tenants, err := caching.NewTenantCache(tenantRepo, 16, time.Minute)
			if err != nil {
				return err
			}
			defer tenants.Close()

			guard := services.NewSubscriptionGuard(tenants, userRepo, repositories.NewProductRepo(pool), plans, metrics.New(), logger)
			svc := services.NewTenantService(tenantRepo, services.NewUserService(userRepo, tenants, guard), plans)

			admin.Roles = []string{models.RoleAdmin, models.RoleUser}
			req.Admin = &admin
			tenant, err := svc.Create(ctx, &req)
			if err != nil {
				return err
			}

			logger.Info("tenant created", "tenant", tenant.Slug, "plan", tenant.Plan, "trial_ends_at", tenant.TrialEndsAt)
			fmt.Fprintf(cmd.OutOrStdout(), "created tenant %s (plan %s)\n", tenant.Slug, tenant.Plan)
			return nil
		}),
	}
	create.Flags().StringVar(&req.Slug, "slug", "", "tenant identifier")
	create.Flags().StringVar(&req.Name, "name", "", "display name")
	create.Flags().StringVar(&req.Plan, "plan", "", "plan id (defaults to the catalog default)")
	create.Flags().StringVar(&admin.Username, "admin-user", "admin", "administrator username")
	create.Flags().StringVar(&admin.Email, "admin-email", "", "administrator email")
	create.Flags().StringVar(&admin.Password, "admin-password", "", "administrator password")
	_ = create.MarkFlagRequired("slug")
	_ = create.MarkFlagRequired("admin-email")
	_ = create.MarkFlagRequired("admin-password")

	cmd.AddCommand(create)
	return cmd
}
