// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

// Package main is the entry point for the Sitepulse analytics server.
//
// Sitepulse periodically pulls search performance data (Google Search
// Console) and on-site usage data (Google Analytics 4) for every registered
// workspace, reconciles the rows against the workspace's page registry, and
// stores daily per-page snapshots in DuckDB. A REST API exposes workspaces,
// pages, snapshots, and sync controls.
//
// # Startup order
//
//  1. Configuration: layered load via Koanf v2 (defaults, config.yaml,
//     SITEPULSE_* environment variables)
//  2. Logging: zerolog with configured level and format
//  3. Database: DuckDB with schema migration on open
//  4. Sync manager: Search Console and GA4 fetchers behind circuit breakers
//  5. Events (optional): NATS publisher for sync completion reports
//  6. HTTP server: chi router on SERVER_HOST:SERVER_PORT
//  7. Supervisor tree: sync manager and HTTP server under suture
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor then drains the
// HTTP server, stops the sync manager (waiting for an in-flight run), and the
// process closes the event publisher and database before exiting.
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

	"github.com/brikx/sitepulse/internal/api"
	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/database"
	"github.com/brikx/sitepulse/internal/events"
	"github.com/brikx/sitepulse/internal/logging"
	"github.com/brikx/sitepulse/internal/supervisor"
	"github.com/brikx/sitepulse/internal/supervisor/services"
	syncengine "github.com/brikx/sitepulse/internal/sync"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Bool("oauth_client", cfg.Google.HasOAuthClient()).
		Bool("service_account", cfg.Google.HasServiceAccount()).
		Msg("Starting Sitepulse")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One HTTP client for all Google API traffic. Retries and circuit
	// breaking live inside the fetchers.
	upstreamClient := &http.Client{Timeout: 30 * time.Second}

	search := syncengine.NewSearchFetcher(&cfg.Google, &cfg.Sync, upstreamClient)
	usage := syncengine.NewUsageFetcher(&cfg.Google, &cfg.Sync, upstreamClient)
	syncManager := syncengine.NewManager(cfg, db, search, usage)

	if cfg.NATS.Enabled {
		publisher, err := events.NewPublisher(&cfg.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize NATS publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event publisher")
			}
		}()
		syncManager.SetEventPublisher(publisher)
		logging.Info().Str("topic", cfg.NATS.Topic).Msg("Sync completion events enabled")
	}

	router := api.NewRouter(cfg, db, syncManager)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(services.NewSyncService(syncManager))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Sitepulse stopped")
}
