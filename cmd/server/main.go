// HazLedger - Multi-Tenant Hazardous Waste Record Keeping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hazledger

// Package main is the entry point for the HazLedger server.
//
// HazLedger is a self-hosted, multi-tenant record-keeping system for
// hazardous waste collection: companies own units and users, employees file
// waste records with photo evidence, and every mutation lands in an
// append-only operation log with retention-based purging.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layering of defaults, config file and
//     environment variables
//  2. Logging: zerolog, structured JSON by default
//  3. Database: DuckDB storage with schema initialization
//  4. Audit: DuckDB-backed operation log and its retention purger
//  5. HTTP: chi route tree behind JWT authentication
//  6. Supervision: suture tree running the HTTP server and the purger
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server drains in-flight
// requests, the supervision tree stops its services and the database is
// closed last.
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

	"github.com/tomtom215/hazledger/internal/api"
	"github.com/tomtom215/hazledger/internal/audit"
	"github.com/tomtom215/hazledger/internal/auth"
	"github.com/tomtom215/hazledger/internal/config"
	"github.com/tomtom215/hazledger/internal/database"
	"github.com/tomtom215/hazledger/internal/logging"
	"github.com/tomtom215/hazledger/internal/supervisor"
	"github.com/tomtom215/hazledger/internal/upload"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting HazLedger")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(context.Background()); err != nil {
		return fmt.Errorf("initialize operation log: %w", err)
	}
	recorder := audit.NewRecorder(auditStore)
	retention := audit.NewRetentionService(auditStore,
		time.Duration(cfg.Audit.RetentionDays)*24*time.Hour,
		cfg.Audit.PurgeInterval)

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("configure authentication: %w", err)
	}
	uploads, err := upload.NewStore(&cfg.Upload)
	if err != nil {
		return fmt.Errorf("prepare upload store: %w", err)
	}

	handler := api.NewHandler(db, recorder, jwtMgr, uploads, cfg)
	router := api.NewRouter(handler,
		auth.NewMiddleware(jwtMgr),
		auth.NewLoginLimiter(cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.Add(supervisor.NewHTTPService(server, 10*time.Second))
	tree.Add(retention)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown requested")
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown: %w", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("supervision tree failed: %w", err)
		}
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
