package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeeshop/internal/api"
	"coffeeshop/internal/auth"
	"coffeeshop/internal/clock"
	"coffeeshop/internal/config"
	"coffeeshop/internal/logging"
	"coffeeshop/internal/metrics"
	"coffeeshop/internal/storage"
	"coffeeshop/internal/storage/memory"
	"coffeeshop/internal/storage/postgres"
)

const version = "0.1"

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "", log.LstdFlags)
	clk := clock.RealClock{}

	if err := cfg.Validate(); err != nil {
		logging.Fatal(logger, map[string]string{"event": "config_invalid", "error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Fatal(logger, map[string]string{"event": "storage_init_failed", "store": cfg.Store, "error": err.Error()})
	}
	defer store.Close()

	gate := auth.NewGate(auth.NewHTTPKeySource(cfg.JWKSURL, cfg.JWKSTimeout), cfg.Issuer, cfg.Audience, clk)
	server := api.NewServer(api.Dependencies{
		Config:  cfg,
		Store:   store,
		Gate:    gate,
		Logger:  logger,
		Metrics: metrics.NewCounters(),
		Clock:   clk,
		Version: version,
	})

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Allowlist(logger, map[string]string{"event": "listening", "address": cfg.Address, "store": cfg.Store, "version": version})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Allowlist(logger, map[string]string{"event": "server_error", "error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Allowlist(logger, map[string]string{"event": "shutdown_error", "error": err.Error()})
	}
	logging.Allowlist(logger, map[string]string{"event": "stopped"})
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.New()
		if cfg.ResetDatabase {
			if err := store.Seed(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, postgres.Options{URL: cfg.DatabaseURL, RequireTLS: cfg.DatabaseRequireTLS})
		if err != nil {
			return nil, err
		}
		setup := store.Migrate
		if cfg.ResetDatabase {
			setup = store.Reset
		}
		if err := setup(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
