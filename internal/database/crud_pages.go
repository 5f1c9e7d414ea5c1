// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brikx/sitepulse/internal/models"
)

// ErrPageConflict indicates a page with the same workspace+URL already exists.
var ErrPageConflict = errors.New("page with this URL already exists in workspace")

// CreatePage inserts a new page into the registry. An empty ID is generated.
// The sync engine calls this when it auto-registers a page discovered in
// search traffic.
func (db *DB) CreatePage(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		page.ID = uuid.New().String()
	}
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now().UTC()
	}
	if page.PageType == "" {
		page.PageType = models.PageTypePillar
	}

	query := `INSERT INTO pages (id, workspace_id, url, path, title, page_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		page.ID, page.WorkspaceID, page.URL, page.Path, page.Title, string(page.PageType), page.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrPageConflict
		}
		return fmt.Errorf("failed to create page: %w", err)
	}
	return nil
}

// ListPagesByWorkspace retrieves all pages belonging to one workspace. The
// reconciler loads this once per workspace per sync run to build its lookup
// indexes.
func (db *DB) ListPagesByWorkspace(ctx context.Context, workspaceID string) ([]models.Page, error) {
	query := `SELECT id, workspace_id, url, path, title, page_type, created_at
		FROM pages WHERE workspace_id = ? ORDER BY url`

	rows, err := db.conn.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []models.Page
	for rows.Next() {
		var (
			p        models.Page
			pageType string
		)
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.URL, &p.Path, &p.Title, &pageType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.PageType = models.PageType(pageType)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("page iteration failed: %w", err)
	}
	return out, nil
}

// CountPages returns the number of registered pages for a workspace.
func (db *DB) CountPages(ctx context.Context, workspaceID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages WHERE workspace_id = ?`, workspaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
