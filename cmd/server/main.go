package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/awap/internal/cache"
	"github.com/soaringjerry/awap/internal/config"
	"github.com/soaringjerry/awap/internal/db"
	"github.com/soaringjerry/awap/internal/services"
	"github.com/soaringjerry/awap/internal/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "awap",
	Short: "AI workforce adoption analytics server",
	Long: `awap serves the workforce AI-adoption dashboard API.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.Sync()
	},
	RunE: runServe,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", utils.SafeEnv("AWAP_CONFIG", "config.yaml"), "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, importCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration and starts the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	utils.Init(cfg.Env, cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore connects to DATABASE_URL and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (*db.Store, error) {
	sqlDB, dialect, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(sqlDB, dialect, cfg.MigrationsDir); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	store, err := db.NewStore(sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	utils.Info("database ready", utils.String("dialect", string(dialect)))
	return store, nil
}

// openCache returns a Redis cache when one is configured. A Redis that
// cannot be reached degrades to no caching.
func openCache(ctx context.Context, cfg *config.Config) (services.ResponseCache, func()) {
	if cfg.Cache.RedisURL == "" {
		return cache.Noop{}, func() {}
	}
	rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.CacheTTL())
	if err != nil {
		utils.Warn("redis unavailable, analytics cache disabled", utils.ErrorField(err))
		return cache.Noop{}, func() {}
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			utils.Warn("close redis", utils.ErrorField(err))
		}
	}
}
