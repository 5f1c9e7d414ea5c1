// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func seedWorkspace(t *testing.T, db *DB) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{
		Domain:             "example.com",
		SearchProperty:     "sc-domain:example.com",
		SearchRefreshToken: "refresh-token",
	}
	if err := db.CreateWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("failed to seed workspace: %v", err)
	}
	return ws
}

func TestWorkspaceCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ws := seedWorkspace(t, db)

	got, err := db.GetWorkspace(ctx, ws.ID)
	if err != nil {
		t.Fatalf("GetWorkspace: %v", err)
	}
	if got.Domain != "example.com" || got.SearchRefreshToken != "refresh-token" {
		t.Errorf("unexpected workspace: %+v", got)
	}

	// Optional fields stay empty when NULL in the store.
	if got.UsageProperty != "" {
		t.Errorf("usage property = %q, want empty", got.UsageProperty)
	}

	list, err := db.ListWorkspaces(ctx)
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d workspaces, want 1", len(list))
	}

	dup := &models.Workspace{Domain: "example.com"}
	if err := db.CreateWorkspace(ctx, dup); !errors.Is(err, ErrDomainConflict) {
		t.Errorf("duplicate domain error = %v, want ErrDomainConflict", err)
	}

	if _, err := db.GetWorkspace(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Errorf("missing workspace error = %v, want ErrWorkspaceNotFound", err)
	}
}

func TestPageRegistry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ws := seedWorkspace(t, db)

	page := &models.Page{
		WorkspaceID: ws.ID,
		URL:         "https://example.com/blog/go-profiling",
		Path:        "/blog/go-profiling",
		Title:       "go profiling",
		PageType:    models.PageTypeNews,
	}
	if err := db.CreatePage(ctx, page); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.ID == "" {
		t.Error("CreatePage must assign an ID")
	}

	dup := &models.Page{WorkspaceID: ws.ID, URL: page.URL, Path: page.Path, Title: "dup"}
	if err := db.CreatePage(ctx, dup); !errors.Is(err, ErrPageConflict) {
		t.Errorf("duplicate page error = %v, want ErrPageConflict", err)
	}

	pages, err := db.ListPagesByWorkspace(ctx, ws.ID)
	if err != nil {
		t.Fatalf("ListPagesByWorkspace: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].PageType != models.PageTypeNews {
		t.Errorf("page type = %q, want news", pages[0].PageType)
	}

	n, err := db.CountPages(ctx, ws.ID)
	if err != nil || n != 1 {
		t.Errorf("CountPages = %d, %v, want 1, nil", n, err)
	}
}

func TestSearchSnapshotUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ws := seedWorkspace(t, db)

	page := &models.Page{WorkspaceID: ws.ID, URL: "https://example.com/foo", Path: "/foo", Title: "foo"}
	if err := db.CreatePage(ctx, page); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	snap := &models.SearchSnapshot{
		PageID: page.ID, Date: "2026-08-01",
		Clicks: 30, Impressions: 1000, CTR: 0.03, Position: 5.91,
	}

	// Writing the same snapshot twice must leave exactly one row.
	for i := 0; i < 2; i++ {
		if err := db.UpsertSearchSnapshot(ctx, snap); err != nil {
			t.Fatalf("UpsertSearchSnapshot (attempt %d): %v", i+1, err)
		}
	}

	got, err := db.ListSearchSnapshots(ctx, ws.ID, "2026-08-01", "2026-08-01")
	if err != nil {
		t.Fatalf("ListSearchSnapshots: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Clicks != 30 || got[0].Impressions != 1000 {
		t.Errorf("unexpected totals: %+v", got[0])
	}

	// Corrected upstream data overwrites, never appends.
	snap.Clicks = 45
	snap.CTR = 0.045
	if err := db.UpsertSearchSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSearchSnapshot (overwrite): %v", err)
	}
	got, err = db.ListSearchSnapshots(ctx, ws.ID, "2026-08-01", "2026-08-01")
	if err != nil {
		t.Fatalf("ListSearchSnapshots: %v", err)
	}
	if len(got) != 1 || got[0].Clicks != 45 {
		t.Errorf("overwrite failed: %+v", got)
	}
}

func TestUsageSnapshotUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ws := seedWorkspace(t, db)

	snap := &models.UsageSnapshot{
		WorkspaceID: ws.ID, URL: "https://example.com/foo", Date: "2026-08-01",
		Sessions: 120, EngagedSessions: 80, EngagementRate: 0.66, EngagementDuration: 41.5,
	}

	for i := 0; i < 2; i++ {
		if err := db.UpsertUsageSnapshot(ctx, snap); err != nil {
			t.Fatalf("UpsertUsageSnapshot (attempt %d): %v", i+1, err)
		}
	}

	got, err := db.ListUsageSnapshots(ctx, ws.ID, "2026-08-01", "2026-08-01")
	if err != nil {
		t.Fatalf("ListUsageSnapshots: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Sessions != 120 || got[0].EngagedSessions != 80 {
		t.Errorf("unexpected totals: %+v", got[0])
	}
}

func TestSnapshotDateRangeFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ws := seedWorkspace(t, db)

	for _, date := range []string{"2026-07-01", "2026-07-15", "2026-08-01"} {
		snap := &models.UsageSnapshot{WorkspaceID: ws.ID, URL: "https://example.com/", Date: date, Sessions: 1}
		if err := db.UpsertUsageSnapshot(ctx, snap); err != nil {
			t.Fatalf("UpsertUsageSnapshot(%s): %v", date, err)
		}
	}

	got, err := db.ListUsageSnapshots(ctx, ws.ID, "2026-07-01", "2026-07-31")
	if err != nil {
		t.Fatalf("ListUsageSnapshots: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d rows in July, want 2", len(got))
	}
}
