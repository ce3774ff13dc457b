package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samba-xyz/samba-relay/pkg/auth"
	"github.com/samba-xyz/samba-relay/pkg/circuitbreaker"
	"github.com/samba-xyz/samba-relay/pkg/config"
	"github.com/samba-xyz/samba-relay/pkg/escrow"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/server"
	"github.com/samba-xyz/samba-relay/pkg/store"
	"github.com/samba-xyz/samba-relay/pkg/workflow"
	"github.com/samba-xyz/samba-relay/pkg/zkp2p"
)

const shutdownGracePeriod = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)
	appLogger.Info("Starting relay on chain %d", cfg.ChainID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := escrow.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize chain client: %v", err)
		os.Exit(1)
	}
	defer chainClient.Close()

	recordStore, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		appLogger.Error("Failed to initialize record store: %v", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recordStore.Close(closeCtx); err != nil {
			appLogger.Error("Failed to close record store: %v", err)
		}
	}()

	newBreaker := func() *circuitbreaker.CircuitBreaker {
		return circuitbreaker.NewCircuitBreaker(
			cfg.CircuitBreaker.Enabled,
			cfg.CircuitBreaker.Threshold,
			cfg.CircuitBreaker.WindowDuration,
			cfg.CircuitBreaker.ResetTimeout,
			appLogger,
		)
	}
	zkClient := zkp2p.New(cfg.ZKP2PBaseURL, cfg.ZKP2PAPIKey, newBreaker, appLogger)

	wf := workflow.New(cfg, zkClient, chainClient, recordStore, appLogger)
	verifier := auth.NewTokenInfoVerifier(cfg.TokenInfoURL)

	srv := server.New(cfg, wf, verifier, chainClient, recordStore, appLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		appLogger.Notice("Shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Graceful shutdown failed: %v", err)
		}
	}

	appLogger.Info("Relay stopped")
}
