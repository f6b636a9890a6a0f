package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed-users",
	Short: "Create or reset the demo accounts",
	Long: `Upserts one demo account per role:

  admin@awap.com    super_admin
  manager@awap.com  manager
  hr@awap.com       hr
  lnd@awap.com      lnd`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		tokens := middleware.NewTokens(cfg.JWTSecretBytes())
		auth := services.NewAuthService(store, tokens.Sign, cfg.TokenTTL(), cfg.Auth.AllowSignup)
		users, err := auth.SeedUsers(ctx, services.DefaultSeedAccounts)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		for _, u := range users {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", u.Email, u.Role)
		}
		return nil
	},
}
