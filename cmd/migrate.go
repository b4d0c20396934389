package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"stockflow/internal/config"
	"stockflow/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool, logger *slog.Logger, _ []string) error {
				return database.Migrate(ctx, pool, logger)
			}),
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool, logger *slog.Logger, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("invalid steps %q", args[0])
					}
					steps = n
				}
				return database.Rollback(ctx, pool, steps, logger)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool, logger *slog.Logger, _ []string) error {
				return database.Status(ctx, pool, logger)
			}),
		},
	)
	return cmd
}

type poolFunc func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger, args []string) error

// withPool loads the configuration, connects to the database and runs fn.
func withPool(fn poolFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}

		pool, err := database.NewPool(cmd.Context(), cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		return fn(cmd.Context(), cfg, pool, logger, args)
	}
}
