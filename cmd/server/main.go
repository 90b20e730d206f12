// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package main is the entry point for the Konfetti analytics server.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, config.yaml, env)
//  2. Database: DuckDB snapshot store for offline availability
//  3. Supabase client: PostgREST reads behind a circuit breaker and limiter
//  4. Refresh manager: periodic snapshot pulls with retry and backoff
//  5. Authentication: JWT with bcrypt credentials, or none for development
//  6. HTTP server: chi router with the cohort analytics API
//
// The refresher and HTTP server run under a suture supervision tree and
// restart independently on failure. SIGINT and SIGTERM trigger a graceful
// shutdown: the server drains in-flight requests, the refresher finishes
// its current cycle, and the database checkpoints before closing.
//
// For JWT authentication (the default):
//   - SECURITY_JWT_SECRET: 32+ character secret for token signing
//   - SECURITY_ADMIN_USERNAME: admin username
//   - SECURITY_ADMIN_PASSWORD: admin password (8+ characters)
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

	"github.com/konfetti-app/konfetti-analytics/internal/analytics"
	"github.com/konfetti-app/konfetti-analytics/internal/api"
	"github.com/konfetti-app/konfetti-analytics/internal/auth"
	"github.com/konfetti-app/konfetti-analytics/internal/cache"
	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/database"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
	"github.com/konfetti-app/konfetti-analytics/internal/refresh"
	"github.com/konfetti-app/konfetti-analytics/internal/supabase"
	"github.com/konfetti-app/konfetti-analytics/internal/supervisor"
	"github.com/konfetti-app/konfetti-analytics/internal/supervisor/services"
)

const (
	httpShutdownTimeout = 10 * time.Second
	idleTimeout         = 60 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting Konfetti analytics server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Snapshot store close failed")
		}
	}()

	fetcher := supabase.NewCircuitBreakerClient(&cfg.Supabase)
	analyticsCache := cache.New(cfg.API.CacheTTL)
	refresher := refresh.NewManager(fetcher, db, analyticsCache, &cfg.Refresh)

	var jwtManager *auth.JWTManager
	var creds *auth.CredentialManager
	if cfg.Security.AuthMode == config.AuthModeJWT {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return fmt.Errorf("init jwt: %w", err)
		}
		creds, err = auth.NewCredentialManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			return fmt.Errorf("init credentials: %w", err)
		}
	}
	authMW := auth.NewMiddleware(jwtManager, &cfg.Security)

	handler := api.NewHandler(
		refresher,
		refresher,
		analytics.NewPipeline(),
		db,
		analyticsCache,
		&cfg.API,
		jwtManager,
		creds,
	)
	router := api.NewRouter(handler, &cfg.Security, authMW)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  idleTimeout,
	}

	tree := supervisor.NewSupervisorTree(supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewManagerService("snapshot-refresher", refresher))
	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := tree.ServeBackground(ctx)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("supervision tree failed: %w", err)
		}
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, entry := range report {
			logging.Warn().Str("service", entry.Name).Msg("Service did not stop cleanly")
		}
	}

	logging.Info().Msg("Server stopped")
	return nil
}
