package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/metrics"
	chiTransport "github.com/kailas-cloud/entrydex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/entrydex/internal/usecase/health"
	"github.com/kailas-cloud/entrydex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	Long: `serve exposes every configured view over HTTP:

  GET /views/{view}/entries.{html|json|csv|tsv}
  GET /views/{view}/entries/{entry}.{format}
  GET /views/{view}/search
  GET /views/{view}/export-nonce
  GET /health
  GET /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides http.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.HTTP.Port = port
	}

	logger, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting entrydex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", zap.Error(err))
		return err
	}
	defer a.close()

	healthSvc := healthuc.New(a.pinger, a.views)
	server := chiTransport.NewServer(a.entries, a.nonces, healthSvc)
	handler := chiTransport.NewRouter(server, logger, cfg.Principals())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
