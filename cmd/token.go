package main

import (
	"fmt"
	"strings"

	"stockflow/internal/services"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with bearer tokens",
	}

	var (
		username string
		tenantID string
		roles    []string
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			tokens, err := services.NewTokenProvider(services.TokenProviderConfig{
				Secret:           cfg.JWT.Secret,
				Issuer:           cfg.JWT.Issuer,
				Audience:         cfg.JWT.Audience,
				TTL:              cfg.JWT.TTL,
				AllowShortSecret: cfg.JWT.AllowShortSecret,
			}, logger)
			if err != nil {
				return err
			}

			token, err := tokens.Issue(services.Identity{Username: username, Roles: upper(roles)}, tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&username, "user", "", "token subject")
	issue.Flags().StringVar(&tenantID, "tenant", "", "tenant identifier")
	issue.Flags().StringSliceVar(&roles, "roles", []string{"USER"}, "comma separated roles")
	_ = issue.MarkFlagRequired("user")
	_ = issue.MarkFlagRequired("tenant")

	cmd.AddCommand(issue)
	return cmd
}

func upper(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
