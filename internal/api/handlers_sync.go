// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/brikx/sitepulse/internal/logging"
	syncengine "github.com/brikx/sitepulse/internal/sync"
)

// triggerSyncRequest is the optional sync trigger body.
type triggerSyncRequest struct {
	// Days overrides the configured lookback window for this run.
	Days int `json:"days"`
}

// TriggerSync starts an asynchronous sync run. Returns 409 while a run is
// already executing.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req triggerSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		rw.BadRequest("invalid JSON body")
		return
	}
	if req.Days < 0 {
		rw.BadRequest("days must not be negative")
		return
	}

	if err := h.syncer.TriggerSync(req.Days); err != nil {
		if errors.Is(err, syncengine.ErrSyncInProgress) {
			rw.Conflict("a sync run is already in progress")
			return
		}
		rw.InternalError("failed to start sync run")
		return
	}

	logging.Info().Int("days", req.Days).Msg("sync run triggered via API")
	rw.Accepted(map[string]string{"status": "started"})
}

// SyncStatus reports whether a run is executing, when the last run finished,
// and the last run's per-workspace results.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"running": h.syncer.IsRunning(),
	}
	if last := h.syncer.LastSyncTime(); !last.IsZero() {
		status["last_sync"] = last.UTC()
	}
	if report := h.syncer.LastReport(); report != nil {
		status["last_report"] = report
	}

	NewResponseWriter(w, r).Success(status)
}
