package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/awap/internal/api"
	"github.com/soaringjerry/awap/internal/middleware"
	"github.com/soaringjerry/awap/internal/progress"
	"github.com/soaringjerry/awap/internal/utils"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
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

	respCache, closeCache := openCache(ctx, cfg)
	defer closeCache()

	if cfg.Auth.JWTSecret == "" {
		utils.Warn("AWAP_JWT_SECRET not set, using the development secret")
	}
	srv := api.NewServer(api.Deps{
		Config: cfg,
		Store:  store,
		Tokens: middleware.NewTokens(cfg.JWTSecretBytes()),
		Cache:  respCache,
		Hub:    progress.NewHub(),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	utils.Info("AWAP server listening",
		utils.String("address", cfg.Addr),
		utils.String("environment", cfg.Env),
		utils.String("analytics_access", cfg.Analytics.Access),
		utils.String("commit", cfg.Commit),
	)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	select {
	case err := <-errCh:
		return err
	case sig := <-signalChan:
		utils.Info("Received shutdown signal", utils.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		utils.Error("Failed to shutdown server gracefully", utils.ErrorField(err))
	}
	if err := srv.Imports().Wait(shutdownCtx); err != nil {
		utils.Warn("background imports still running at shutdown", utils.ErrorField(err))
	}
	utils.Info("Server shutdown completed")
	return nil
}
