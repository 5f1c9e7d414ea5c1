// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
database_schema.go - Database Schema Management

Tables:
  - workspaces: one row per monitored web property, carrying optional
    per-workspace provider property IDs and the search refresh token
  - pages: the page registry; one row per known content page
  - search_snapshots: daily search-performance metrics, unique per
    (page_id, date)
  - usage_snapshots: daily usage-analytics metrics, unique per
    (workspace_id, url, date)

The two snapshot tables have different natural keys because the providers
report against different page-identity schemes: the search API returns full
URLs matched to registered pages, while the usage API returns bare paths
that may not correspond to any registered page.

All columns are defined in the initial CREATE TABLE statements; the unique
constraints make the sync engine's ON CONFLICT upserts well-defined.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables and indexes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table and index creation SQL statements.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id UUID PRIMARY KEY,
			domain TEXT NOT NULL UNIQUE,
			search_property TEXT,
			search_refresh_token TEXT,
			usage_property TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS pages (
			id UUID PRIMARY KEY,
			workspace_id UUID NOT NULL,
			url TEXT NOT NULL,
			path TEXT NOT NULL,
			title TEXT NOT NULL,
			page_type TEXT NOT NULL DEFAULT 'pillar',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (workspace_id, url)
		)`,

		`CREATE TABLE IF NOT EXISTS search_snapshots (
			page_id UUID NOT NULL,
			date DATE NOT NULL,
			clicks BIGINT NOT NULL DEFAULT 0,
			impressions BIGINT NOT NULL DEFAULT 0,
			ctr DOUBLE NOT NULL DEFAULT 0,
			position DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (page_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS usage_snapshots (
			workspace_id UUID NOT NULL,
			url TEXT NOT NULL,
			date DATE NOT NULL,
			sessions BIGINT NOT NULL DEFAULT 0,
			engaged_sessions BIGINT NOT NULL DEFAULT 0,
			engagement_rate DOUBLE NOT NULL DEFAULT 0,
			engagement_duration DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (workspace_id, url, date)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pages_workspace ON pages (workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_path ON pages (workspace_id, path)`,
		`CREATE INDEX IF NOT EXISTS idx_search_snapshots_date ON search_snapshots (date)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_snapshots_date ON usage_snapshots (workspace_id, date)`,
	}
}
