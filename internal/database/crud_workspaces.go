// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brikx/sitepulse/internal/models"
)

// Workspace errors
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrDomainConflict    = errors.New("workspace with this domain already exists")
)

// CreateWorkspace inserts a new workspace. An empty ID is generated.
func (db *DB) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO workspaces (
		id, domain, search_property, search_refresh_token, usage_property, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := db.conn.ExecContext(ctx, query,
		ws.ID, ws.Domain,
		nullIfEmpty(ws.SearchProperty), nullIfEmpty(ws.SearchRefreshToken),
		nullIfEmpty(ws.UsageProperty), ws.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDomainConflict
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by ID. Returns ErrWorkspaceNotFound
// when no row exists.
func (db *DB) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	query := `SELECT id, domain, search_property, search_refresh_token, usage_property, created_at
		FROM workspaces WHERE id = ?`

	ws, err := scanWorkspace(db.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}
	return ws, nil
}

// ListWorkspaces retrieves all workspaces ordered by domain.
func (db *DB) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	query := `SELECT id, domain, search_property, search_refresh_token, usage_property, created_at
		FROM workspaces ORDER BY domain`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []models.Workspace
	for rows.Next() {
		var (
			ws                               models.Workspace
			searchProp, refreshTok, usageProp sql.NullString
		)
		if err := rows.Scan(&ws.ID, &ws.Domain, &searchProp, &refreshTok, &usageProp, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		ws.SearchProperty = searchProp.String
		ws.SearchRefreshToken = refreshTok.String
		ws.UsageProperty = usageProp.String
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workspace iteration failed: %w", err)
	}
	return out, nil
}

// scanWorkspace scans a single workspace row. Returns (nil, nil) when the
// row does not exist.
func scanWorkspace(row *sql.Row) (*models.Workspace, error) {
	var (
		ws                               models.Workspace
		searchProp, refreshTok, usageProp sql.NullString
	)
	err := row.Scan(&ws.ID, &ws.Domain, &searchProp, &refreshTok, &usageProp, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	ws.SearchProperty = searchProp.String
	ws.SearchRefreshToken = refreshTok.String
	ws.UsageProperty = usageProp.String
	return &ws, nil
}
