// Command stockflow runs the multi-tenant inventory service and its
// operational tasks.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"stockflow/internal/config"
	"stockflow/internal/logging"

	"github.com/spf13/cobra"
)

const (
	version = "1.0.0"
	appName = "stockflow"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Multi-tenant inventory service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd(), tokenCmd(), tenantCmd())
	return cmd
}

// loadConfig reads the configuration and builds the logger every command uses.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Service:    appName,
		Production: cfg.IsProduction(),
	})
	slog.SetDefault(logger)
	return cfg, logger, nil
}
