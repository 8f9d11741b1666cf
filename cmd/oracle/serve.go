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

	chiTransport "github.com/nightcity/oracle/internal/transport/chi"
	"github.com/nightcity/oracle/internal/version"
)

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), g)
		},
	}
}

func serve(ctx context.Context, g *globals) error {
	cfg, logger := g.cfg, g.logger

	logger.Info("Starting oracle API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", g.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("corpora", len(cfg.Corpora)),
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	server := chiTransport.NewServer(a.retrieval, a.corpora, a.health, logger).
		WithDefaultLimit(cfg.Retrieval.MaxResults)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(server, logger, cfg.Auth.APIKeys),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(quit)

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case sig := <-quit:
			if sig == syscall.SIGHUP {
				logger.Info("Received SIGHUP, reloading corpora")
				if err := a.corpora.ReloadAll(ctx); err != nil {
					logger.Error("Corpus reload incomplete", zap.Error(err))
				}
				continue
			}
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}
			logger.Info("Server stopped gracefully")
			return nil
		}
	}
}
