// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import (
	"context"
	"time"

	"github.com/brikx/sitepulse/internal/models"
)

// dateLayout is the calendar date format used across the pipeline and the
// upstream request bodies.
const dateLayout = "2006-01-02"

// FetchStrategy retrieves all raw metric rows for one workspace and date
// range from one upstream provider. The two implementations differ in
// chunking (date-windowed offset pagination vs a single bounded request) but
// share this contract so the orchestrator needs no provider conditionals.
type FetchStrategy interface {
	// Provider names the upstream ("search" or "usage") for accounting.
	Provider() string

	// Configured reports whether this workspace can sync from the
	// provider. Unconfigured workspaces are skipped, not failed.
	Configured(ws *models.Workspace) bool

	// Fetch returns all rows for [start, end] inclusive. A nil slice with
	// nil error means the provider turned out to be unconfigured after
	// all (e.g. the credential was empty at token time).
	Fetch(ctx context.Context, ws *models.Workspace, start, end time.Time) ([]models.RawMetricRow, error)
}

// dateWindow is one sub-window of a chunked fetch, both bounds inclusive.
type dateWindow struct {
	start time.Time
	end   time.Time
}

// splitWindows cuts [start, end] into consecutive sub-windows of at most
// spanDays calendar days. Sub-windows neither overlap nor leave gaps, so the
// concatenated row set equals what an unbounded single query would return.
func splitWindows(start, end time.Time, spanDays int) []dateWindow {
	if end.Before(start) || spanDays <= 0 {
		return nil
	}

	var windows []dateWindow
	for cur := start; !cur.After(end); {
		wEnd := cur.AddDate(0, 0, spanDays-1)
		if wEnd.After(end) {
			wEnd = end
		}
		windows = append(windows, dateWindow{start: cur, end: wEnd})
		cur = wEnd.AddDate(0, 0, 1)
	}
	return windows
}
