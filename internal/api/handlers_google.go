// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
handlers_google.go - Provider Connection Tests

Lets operators verify Google credentials without waiting for the next sync
run. Each test performs a real token exchange against the configured token
endpoint followed by a one-row probe query, and reports the outcome with
identities masked. Tests spend upstream quota, hence the strict rate limit
on these routes.
*/

//nolint:staticcheck // File documentation, not package doc
package api

import (
	"errors"
	"net/http"

	"github.com/brikx/sitepulse/internal/database"
	syncengine "github.com/brikx/sitepulse/internal/sync"
)

// TestSearchConnection redeems a workspace's refresh token and runs a
// one-row probe query to verify the search provider end to end. Requires
// the workspace_id query parameter.
func (h *Handler) TestSearchConnection(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		rw.BadRequest("workspace_id query parameter is required")
		return
	}

	ws, err := h.store.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, database.ErrWorkspaceNotFound) {
			rw.NotFound("workspace not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	if ws.SearchRefreshToken == "" {
		rw.BadRequest("workspace has no search refresh token")
		return
	}

	rows, err := h.search.Probe(r.Context(), ws)
	if err != nil {
		writeProviderTestError(rw, err)
		return
	}

	rw.Success(map[string]any{
		"connected":  true,
		"provider":   "search",
		"property":   ws.SearchProperty,
		"probe_rows": rows,
	})
}

// TestUsageConnection signs and redeems a service-account assertion to
// verify the usage provider. When a property is resolvable (from the
// optional workspace_id parameter or the process default) a one-row probe
// report runs as well; otherwise only the token exchange is verified.
func (h *Handler) TestUsageConnection(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.cfg.Google.HasServiceAccount() {
		rw.BadRequest("service account is not configured")
		return
	}

	property := h.cfg.Google.DefaultUsageProperty
	if workspaceID := r.URL.Query().Get("workspace_id"); workspaceID != "" {
		ws, err := h.store.GetWorkspace(r.Context(), workspaceID)
		if err != nil {
			if errors.Is(err, database.ErrWorkspaceNotFound) {
				rw.NotFound("workspace not found")
				return
			}
			rw.DatabaseError(err)
			return
		}
		if ws.UsageProperty != "" {
			property = ws.UsageProperty
		}
	}

	result := map[string]any{
		"connected":       true,
		"provider":        "usage",
		"service_account": syncengine.MaskEmail(h.cfg.Google.ServiceAccountEmail),
	}

	if property == "" {
		src := syncengine.NewServiceAccountTokenSource(&h.cfg.Google, h.client)
		if _, err := src.Token(r.Context()); err != nil {
			writeProviderTestError(rw, err)
			return
		}
		result["probe"] = "skipped"
		rw.Success(result)
		return
	}

	rows, err := h.usage.Probe(r.Context(), property)
	if err != nil {
		writeProviderTestError(rw, err)
		return
	}
	result["property"] = property
	result["probe_rows"] = rows
	rw.Success(result)
}

// writeProviderTestError maps token and probe errors to HTTP statuses:
// local configuration problems are 400, upstream rejections 502.
func writeProviderTestError(rw *ResponseWriter, err error) {
	var credErr *syncengine.CredentialError
	if errors.As(err, &credErr) {
		rw.BadRequest(credErr.Error())
		return
	}
	var authErr *syncengine.UpstreamAuthError
	if errors.As(err, &authErr) {
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamFailed, authErr.Error())
		return
	}
	var fetchErr *syncengine.UpstreamFetchError
	if errors.As(err, &fetchErr) {
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamFailed, fetchErr.Error())
		return
	}
	rw.InternalError("connection test failed")
}
