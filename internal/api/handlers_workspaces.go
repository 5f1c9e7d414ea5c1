// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/brikx/sitepulse/internal/database"
	"github.com/brikx/sitepulse/internal/models"
)

const snapshotDateLayout = "2006-01-02"

// workspaceSummary is a workspace plus its registered page count.
type workspaceSummary struct {
	models.Workspace
	PageCount int `json:"page_count"`
}

// ListWorkspaces returns all workspaces with page counts.
func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	workspaces, err := h.store.ListWorkspaces(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	summaries := make([]workspaceSummary, 0, len(workspaces))
	for _, ws := range workspaces {
		count, err := h.store.CountPages(r.Context(), ws.ID)
		if err != nil {
			rw.DatabaseError(err)
			return
		}
		summaries = append(summaries, workspaceSummary{Workspace: ws, PageCount: count})
	}

	rw.SuccessWithCount(summaries, len(summaries))
}

// createWorkspaceRequest is the workspace creation body. The refresh token is
// write-only; it never appears in responses.
type createWorkspaceRequest struct {
	Domain             string `json:"domain"`
	SearchProperty     string `json:"search_property"`
	SearchRefreshToken string `json:"search_refresh_token"`
	UsageProperty      string `json:"usage_property"`
}

// CreateWorkspace registers a new workspace.
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if req.Domain == "" {
		rw.BadRequest("domain is required")
		return
	}

	ws := &models.Workspace{
		Domain:             req.Domain,
		SearchProperty:     req.SearchProperty,
		SearchRefreshToken: req.SearchRefreshToken,
		UsageProperty:      req.UsageProperty,
	}
	if err := h.store.CreateWorkspace(r.Context(), ws); err != nil {
		if errors.Is(err, database.ErrDomainConflict) {
			rw.Conflict("a workspace for this domain already exists")
			return
		}
		rw.DatabaseError(err)
		return
	}

	rw.Created(ws)
}

// GetWorkspace returns one workspace by ID.
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ws, err := h.store.GetWorkspace(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrWorkspaceNotFound) {
			rw.NotFound("workspace not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	rw.Success(ws)
}

// ListWorkspacePages returns the page registry of one workspace.
func (h *Handler) ListWorkspacePages(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	workspaceID := chi.URLParam(r, "id")

	if _, err := h.store.GetWorkspace(r.Context(), workspaceID); err != nil {
		if errors.Is(err, database.ErrWorkspaceNotFound) {
			rw.NotFound("workspace not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	pages, err := h.store.ListPagesByWorkspace(r.Context(), workspaceID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithCount(pages, len(pages))
}

// ListWorkspaceSnapshots returns metric snapshots for one workspace. Query
// parameters: provider (search or usage, default search), from, to
// (inclusive YYYY-MM-DD bounds, both optional).
func (h *Handler) ListWorkspaceSnapshots(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	workspaceID := chi.URLParam(r, "id")

	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = "search"
	}
	if provider != "search" && provider != "usage" {
		rw.BadRequest("provider must be search or usage")
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse(snapshotDateLayout, bound); err != nil {
			rw.BadRequest("date bounds must be YYYY-MM-DD")
			return
		}
	}

	if _, err := h.store.GetWorkspace(r.Context(), workspaceID); err != nil {
		if errors.Is(err, database.ErrWorkspaceNotFound) {
			rw.NotFound("workspace not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if provider == "search" {
		snaps, err := h.store.ListSearchSnapshots(r.Context(), workspaceID, from, to)
		if err != nil {
			rw.DatabaseError(err)
			return
		}
		rw.SuccessWithCount(snaps, len(snaps))
		return
	}

	snaps, err := h.store.ListUsageSnapshots(r.Context(), workspaceID, from, to)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithCount(snaps, len(snaps))
}
