// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/models"
)

// Store is the read surface the handlers need. Satisfied by *database.DB.
type Store interface {
	Ping(ctx context.Context) error
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	ListPagesByWorkspace(ctx context.Context, workspaceID string) ([]models.Page, error)
	CountPages(ctx context.Context, workspaceID string) (int, error)
	ListSearchSnapshots(ctx context.Context, workspaceID, from, to string) ([]models.SearchSnapshot, error)
	ListUsageSnapshots(ctx context.Context, workspaceID, from, to string) ([]models.UsageSnapshot, error)
}

// SyncController is the orchestration surface. Satisfied by *sync.Manager.
type SyncController interface {
	TriggerSync(days int) error
	IsRunning() bool
	LastSyncTime() time.Time
	LastReport() *models.SyncReport
}

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates the API router.
func NewRouter(cfg *config.Config, store Store, syncer SyncController) *Router {
	return &Router{
		cfg:     cfg,
		handler: NewHandler(cfg, store, syncer),
	}
}

// Setup configures all routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(&router.cfg.API))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(securityHeaders)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimitMiddleware(&router.cfg.API))
		r.Use(securityHeaders)
		r.Use(requestMetrics)

		r.Get("/workspaces", router.handler.ListWorkspaces)
		r.Post("/workspaces", router.handler.CreateWorkspace)
		r.Route("/workspaces/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetWorkspace)
			r.Get("/pages", router.handler.ListWorkspacePages)
			r.Get("/snapshots", router.handler.ListWorkspaceSnapshots)
		})

		r.Get("/sync/status", router.handler.SyncStatus)
		r.With(rateLimitSync()).Post("/sync/trigger", router.handler.TriggerSync)

		r.Route("/google", func(r chi.Router) {
			r.Use(rateLimitTest())
			r.Get("/search/test", router.handler.TestSearchConnection)
			r.Get("/usage/test", router.handler.TestUsageConnection)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
