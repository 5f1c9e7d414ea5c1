// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/brikx/sitepulse/internal/config"
	syncengine "github.com/brikx/sitepulse/internal/sync"
)

// Handler holds the dependencies shared by all endpoint handlers.
type Handler struct {
	cfg    *config.Config
	store  Store
	syncer SyncController
	client *http.Client
	search *syncengine.SearchFetcher
	usage  *syncengine.UsageFetcher
}

// NewHandler creates the endpoint handler set. The fetchers here serve only
// the connection-test probes; sync runs use the manager's own fetchers.
func NewHandler(cfg *config.Config, store Store, syncer SyncController) *Handler {
	client := &http.Client{Timeout: 15 * time.Second}
	return &Handler{
		cfg:    cfg,
		store:  store,
		syncer: syncer,
		client: client,
		search: syncengine.NewSearchFetcher(&cfg.Google, &cfg.Sync, client),
		usage:  syncengine.NewUsageFetcher(&cfg.Google, &cfg.Sync, client),
	}
}

// HealthLive reports process liveness. Always 200 while the process serves.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady reports readiness: the database must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		NewResponseWriter(w, r).ServiceUnavailable("database not reachable")
		return
	}
	NewResponseWriter(w, r).Success(map[string]string{"status": "ready"})
}

// Health reports the combined service health summary.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		dbStatus = "unreachable"
	}

	status := map[string]any{
		"status":       "ok",
		"database":     dbStatus,
		"sync_running": h.syncer.IsRunning(),
	}
	if last := h.syncer.LastSyncTime(); !last.IsZero() {
		status["last_sync"] = last.UTC()
	}
	if dbStatus != "ok" {
		status["status"] = "degraded"
	}

	NewResponseWriter(w, r).Success(status)
}
