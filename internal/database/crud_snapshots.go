// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/brikx/sitepulse/internal/metrics"
	"github.com/brikx/sitepulse/internal/models"
)

// UpsertSearchSnapshot writes one daily search snapshot, overwriting all
// metric fields when a row with the same (page_id, date) key exists.
// Re-running a sync for an overlapping window converges on the latest
// upstream data instead of duplicating or double-counting.
func (db *DB) UpsertSearchSnapshot(ctx context.Context, snap *models.SearchSnapshot) error {
	query := `INSERT INTO search_snapshots (page_id, date, clicks, impressions, ctr, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (page_id, date) DO UPDATE SET
			clicks = EXCLUDED.clicks,
			impressions = EXCLUDED.impressions,
			ctr = EXCLUDED.ctr,
			position = EXCLUDED.position,
			updated_at = now()`

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		snap.PageID, snap.Date, snap.Clicks, snap.Impressions, snap.CTR, snap.Position,
	)
	metrics.RecordDBQuery("upsert", "search_snapshots", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert search snapshot: %w", err)
	}
	return nil
}

// UpsertUsageSnapshot writes one daily usage snapshot keyed on
// (workspace_id, url, date), with the same overwrite semantics.
func (db *DB) UpsertUsageSnapshot(ctx context.Context, snap *models.UsageSnapshot) error {
	query := `INSERT INTO usage_snapshots (workspace_id, url, date, sessions, engaged_sessions, engagement_rate, engagement_duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (workspace_id, url, date) DO UPDATE SET
			sessions = EXCLUDED.sessions,
			engaged_sessions = EXCLUDED.engaged_sessions,
			engagement_rate = EXCLUDED.engagement_rate,
			engagement_duration = EXCLUDED.engagement_duration,
			updated_at = now()`

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		snap.WorkspaceID, snap.URL, snap.Date,
		snap.Sessions, snap.EngagedSessions, snap.EngagementRate, snap.EngagementDuration,
	)
	metrics.RecordDBQuery("upsert", "usage_snapshots", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert usage snapshot: %w", err)
	}
	return nil
}

// ListSearchSnapshots retrieves search snapshots for a workspace within an
// inclusive date range, joined through the page registry.
func (db *DB) ListSearchSnapshots(ctx context.Context, workspaceID, from, to string) ([]models.SearchSnapshot, error) {
	query := `SELECT s.page_id, strftime(s.date, '%Y-%m-%d'), s.clicks, s.impressions, s.ctr, s.position
		FROM search_snapshots s
		JOIN pages p ON p.id = s.page_id
		WHERE p.workspace_id = ? AND s.date >= ? AND s.date <= ?
		ORDER BY s.date, s.page_id`

	rows, err := db.conn.QueryContext(ctx, query, workspaceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list search snapshots: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []models.SearchSnapshot
	for rows.Next() {
		var s models.SearchSnapshot
		if err := rows.Scan(&s.PageID, &s.Date, &s.Clicks, &s.Impressions, &s.CTR, &s.Position); err != nil {
			return nil, fmt.Errorf("failed to scan search snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search snapshot iteration failed: %w", err)
	}
	return out, nil
}

// ListUsageSnapshots retrieves usage snapshots for a workspace within an
// inclusive date range.
func (db *DB) ListUsageSnapshots(ctx context.Context, workspaceID, from, to string) ([]models.UsageSnapshot, error) {
	query := `SELECT workspace_id, url, strftime(date, '%Y-%m-%d'), sessions, engaged_sessions, engagement_rate, engagement_duration
		FROM usage_snapshots
		WHERE workspace_id = ? AND date >= ? AND date <= ?
		ORDER BY date, url`

	rows, err := db.conn.QueryContext(ctx, query, workspaceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage snapshots: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []models.UsageSnapshot
	for rows.Next() {
		var s models.UsageSnapshot
		if err := rows.Scan(&s.WorkspaceID, &s.URL, &s.Date, &s.Sessions, &s.EngagedSessions, &s.EngagementRate, &s.EngagementDuration); err != nil {
			return nil, fmt.Errorf("failed to scan usage snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("usage snapshot iteration failed: %w", err)
	}
	return out, nil
}
