// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/models"
)

// fakeSyncStore is an in-memory Store for orchestration tests.
type fakeSyncStore struct {
	workspaces []models.Workspace
	pages      map[string][]models.Page

	createdPages []models.Page
	searchSnaps  []models.SearchSnapshot
	usageSnaps   []models.UsageSnapshot
}

func (s *fakeSyncStore) ListWorkspaces(context.Context) ([]models.Workspace, error) {
	return s.workspaces, nil
}

func (s *fakeSyncStore) ListPagesByWorkspace(_ context.Context, workspaceID string) ([]models.Page, error) {
	return s.pages[workspaceID], nil
}

func (s *fakeSyncStore) CreatePage(_ context.Context, page *models.Page) error {
	page.ID = fmt.Sprintf("auto-%d", len(s.createdPages)+1)
	s.createdPages = append(s.createdPages, *page)
	return nil
}

func (s *fakeSyncStore) UpsertSearchSnapshot(_ context.Context, snap *models.SearchSnapshot) error {
	s.searchSnaps = append(s.searchSnaps, *snap)
	return nil
}

func (s *fakeSyncStore) UpsertUsageSnapshot(_ context.Context, snap *models.UsageSnapshot) error {
	s.usageSnaps = append(s.usageSnaps, *snap)
	return nil
}

// fakeStrategy is a canned FetchStrategy.
type fakeStrategy struct {
	provider   string
	configured func(ws *models.Workspace) bool
	rows       map[string][]models.RawMetricRow // by workspace ID
	err        error
	fetchGate  chan struct{} // when set, Fetch blocks until closed
	calls      int
}

func (f *fakeStrategy) Provider() string { return f.provider }

func (f *fakeStrategy) Configured(ws *models.Workspace) bool {
	if f.configured == nil {
		return true
	}
	return f.configured(ws)
}

func (f *fakeStrategy) Fetch(_ context.Context, ws *models.Workspace, _, _ time.Time) ([]models.RawMetricRow, error) {
	f.calls++
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[ws.ID], nil
}

func managerTestConfig() *config.Config {
	return &config.Config{
		Sync: config.SyncConfig{
			Enabled:       false,
			Interval:      time.Hour,
			LookbackDays:  60,
			EndOffsetDays: 1,
			WindowDays:    15,
			PageSize:      25000,
		},
	}
}

func searchConfigured(ws *models.Workspace) bool { return ws.SearchRefreshToken != "" }
func usageConfigured(ws *models.Workspace) bool  { return ws.UsageProperty != "" }

func TestRunSyncPartialProviderWorkspace(t *testing.T) {
	// Search configured, usage not: the usage side reports zero counts and
	// contributes no error.
	store := &fakeSyncStore{
		workspaces: []models.Workspace{
			{ID: "ws-1", Domain: "example.com", SearchRefreshToken: "rt"},
		},
		pages: map[string][]models.Page{
			"ws-1": {{ID: "page-1", WorkspaceID: "ws-1", URL: "https://example.com/foo", Path: "/foo"}},
		},
	}
	search := &fakeStrategy{
		provider:   "search",
		configured: searchConfigured,
		rows: map[string][]models.RawMetricRow{
			"ws-1": {{Date: "2026-01-01", PageRef: "https://example.com/foo", Clicks: 3, Impressions: 100, Position: 4}},
		},
	}
	usage := &fakeStrategy{provider: "usage", configured: usageConfigured}

	m := NewManager(managerTestConfig(), store, search, usage)
	report, err := m.RunSync(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	if len(report.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(report.Results))
	}
	r := report.Results[0]
	if r.SearchFetched != 1 || r.SearchMatched != 1 {
		t.Errorf("search counts = %d/%d, want 1/1", r.SearchFetched, r.SearchMatched)
	}
	if r.UsageFetched != 0 || r.UsageMatched != 0 {
		t.Errorf("usage counts = %d/%d, want 0/0", r.UsageFetched, r.UsageMatched)
	}
	if len(r.Errors) != 0 {
		t.Errorf("errors = %v, want none for unconfigured provider", r.Errors)
	}
	if usage.calls != 0 {
		t.Errorf("usage Fetch called %d times, want 0", usage.calls)
	}
	if len(store.searchSnaps) != 1 || store.searchSnaps[0].PageID != "page-1" {
		t.Errorf("searchSnaps = %+v, want one snapshot for page-1", store.searchSnaps)
	}
}

func TestRunSyncProviderFailureIsolation(t *testing.T) {
	// A failing search provider must not prevent the usage provider from
	// completing for the same workspace.
	store := &fakeSyncStore{
		workspaces: []models.Workspace{
			{ID: "ws-1", Domain: "example.com", SearchRefreshToken: "rt", UsageProperty: "123"},
		},
		pages: map[string][]models.Page{
			"ws-1": {{ID: "page-1", WorkspaceID: "ws-1", URL: "https://example.com/foo", Path: "/foo"}},
		},
	}
	search := &fakeStrategy{
		provider:   "search",
		configured: searchConfigured,
		err:        &UpstreamFetchError{Provider: "search", Status: 403, Body: "denied"},
	}
	usage := &fakeStrategy{
		provider:   "usage",
		configured: usageConfigured,
		rows: map[string][]models.RawMetricRow{
			"ws-1": {{Date: "2026-01-01", PageRef: "/foo", Sessions: 10, EngagedSessions: 5, EngagementRate: 0.5, EngagementDuration: 60}},
		},
	}

	m := NewManager(managerTestConfig(), store, search, usage)
	report, err := m.RunSync(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	r := report.Results[0]
	if len(r.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one search error", r.Errors)
	}
	if r.SearchFetched != 0 || r.SearchMatched != 0 {
		t.Errorf("search counts = %d/%d, want 0/0 after failure", r.SearchFetched, r.SearchMatched)
	}
	if r.UsageFetched != 1 || r.UsageMatched != 1 {
		t.Errorf("usage counts = %d/%d, want 1/1", r.UsageFetched, r.UsageMatched)
	}
	if len(store.usageSnaps) != 1 {
		t.Errorf("usageSnaps = %+v, want one snapshot despite search failure", store.usageSnaps)
	}
	if report.TotalErrors() != 1 {
		t.Errorf("TotalErrors() = %d, want 1", report.TotalErrors())
	}
}

func TestRunSyncWorkspaceFailureIsolation(t *testing.T) {
	// A failing workspace must not abort later workspaces.
	store := &fakeSyncStore{
		workspaces: []models.Workspace{
			{ID: "ws-bad", Domain: "bad.example", SearchRefreshToken: "rt"},
			{ID: "ws-good", Domain: "good.example", SearchRefreshToken: "rt"},
		},
		pages: map[string][]models.Page{
			"ws-good": {{ID: "page-g", WorkspaceID: "ws-good", URL: "https://good.example/foo", Path: "/foo"}},
		},
	}
	search := &fakeStrategy{
		provider:   "search",
		configured: searchConfigured,
		rows: map[string][]models.RawMetricRow{
			"ws-good": {{Date: "2026-01-01", PageRef: "/foo", Clicks: 1, Impressions: 10, Position: 2}},
		},
	}
	// First workspace fails at fetch time by having no rows and a one-shot
	// error: simplest is a wrapper strategy.
	failFirst := &failOnceStrategy{inner: search, failWorkspace: "ws-bad"}
	usage := &fakeStrategy{provider: "usage", configured: usageConfigured}

	m := NewManager(managerTestConfig(), store, failFirst, usage)
	report, err := m.RunSync(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	if len(report.Results[0].Errors) != 1 {
		t.Errorf("first workspace errors = %v, want one", report.Results[0].Errors)
	}
	if got := report.Results[1]; got.SearchMatched != 1 || len(got.Errors) != 0 {
		t.Errorf("second workspace result = %+v, want clean sync", got)
	}
}

// failOnceStrategy fails for one workspace and delegates otherwise.
type failOnceStrategy struct {
	inner         FetchStrategy
	failWorkspace string
}

func (f *failOnceStrategy) Provider() string { return f.inner.Provider() }

func (f *failOnceStrategy) Configured(ws *models.Workspace) bool { return f.inner.Configured(ws) }

func (f *failOnceStrategy) Fetch(ctx context.Context, ws *models.Workspace, start, end time.Time) ([]models.RawMetricRow, error) {
	if ws.ID == f.failWorkspace {
		return nil, errors.New("upstream exploded")
	}
	return f.inner.Fetch(ctx, ws, start, end)
}

func TestRunSyncAutoRegistrationAsymmetry(t *testing.T) {
	// Search rows for unknown URLs register pages; usage rows for unknown
	// paths are dropped without registering anything.
	store := &fakeSyncStore{
		workspaces: []models.Workspace{
			{ID: "ws-1", Domain: "example.com", SearchRefreshToken: "rt", UsageProperty: "123"},
		},
		pages: map[string][]models.Page{"ws-1": nil},
	}
	search := &fakeStrategy{
		provider:   "search",
		configured: searchConfigured,
		rows: map[string][]models.RawMetricRow{
			"ws-1": {
				{Date: "2026-01-01", PageRef: "https://example.com/nieuws/launch", Clicks: 2, Impressions: 40, Position: 3},
				{Date: "2026-01-02", PageRef: "https://Example.com/Nieuws/Launch/", Clicks: 1, Impressions: 20, Position: 4},
			},
		},
	}
	usage := &fakeStrategy{
		provider:   "usage",
		configured: usageConfigured,
		rows: map[string][]models.RawMetricRow{
			"ws-1": {{Date: "2026-01-01", PageRef: "/never-seen", Sessions: 10}},
		},
	}

	m := NewManager(managerTestConfig(), store, search, usage)
	report, err := m.RunSync(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	if len(store.createdPages) != 1 {
		t.Fatalf("created %d pages, want 1 (dedupe within run, no usage registration)", len(store.createdPages))
	}
	created := store.createdPages[0]
	if created.URL != "https://example.com/nieuws/launch" {
		t.Errorf("created URL = %q, want canonical form", created.URL)
	}
	if created.PageType != models.PageTypeNews {
		t.Errorf("created PageType = %q, want news", created.PageType)
	}

	r := report.Results[0]
	if r.SearchFetched != 2 || r.SearchMatched != 2 {
		t.Errorf("search counts = %d/%d, want 2/2", r.SearchFetched, r.SearchMatched)
	}
	// The unknown usage path was fetched but dropped, never an error.
	if r.UsageFetched != 1 || r.UsageMatched != 0 {
		t.Errorf("usage counts = %d/%d, want 1/0", r.UsageFetched, r.UsageMatched)
	}
	if len(r.Errors) != 0 {
		t.Errorf("errors = %v, want none", r.Errors)
	}
	if len(store.usageSnaps) != 0 {
		t.Errorf("usageSnaps = %+v, want none for unmatched rows", store.usageSnaps)
	}
}

func TestRunSyncRejectsConcurrentRuns(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeSyncStore{
		workspaces: []models.Workspace{{ID: "ws-1", Domain: "example.com", SearchRefreshToken: "rt"}},
		pages:      map[string][]models.Page{"ws-1": nil},
	}
	search := &fakeStrategy{provider: "search", configured: searchConfigured, fetchGate: gate}
	usage := &fakeStrategy{provider: "usage", configured: usageConfigured}

	m := NewManager(managerTestConfig(), store, search, usage)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.RunSync(context.Background(), 0)
	}()

	// Wait for the run to reach the blocked fetch.
	deadline := time.After(2 * time.Second)
	for !m.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("run never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := m.RunSync(context.Background(), 0); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent RunSync err = %v, want ErrSyncInProgress", err)
	}
	if err := m.TriggerSync(0); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("TriggerSync during run err = %v, want ErrSyncInProgress", err)
	}

	close(gate)
	<-done

	if m.IsRunning() {
		t.Error("IsRunning() = true after run finished")
	}
	if m.LastReport() == nil {
		t.Error("LastReport() = nil after completed run")
	}
	if m.LastSyncTime().IsZero() {
		t.Error("LastSyncTime() is zero after completed run")
	}
}

func TestRunSyncPublishesReport(t *testing.T) {
	store := &fakeSyncStore{
		workspaces: []models.Workspace{{ID: "ws-1", Domain: "example.com"}},
		pages:      map[string][]models.Page{"ws-1": nil},
	}
	search := &fakeStrategy{provider: "search", configured: searchConfigured}
	usage := &fakeStrategy{provider: "usage", configured: usageConfigured}

	m := NewManager(managerTestConfig(), store, search, usage)
	pub := &capturePublisher{}
	m.SetEventPublisher(pub)

	if _, err := m.RunSync(context.Background(), 0); err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if pub.report == nil {
		t.Fatal("publisher never received the report")
	}
	if len(pub.report.Results) != 1 {
		t.Errorf("published %d results, want 1", len(pub.report.Results))
	}
}

type capturePublisher struct {
	report *models.SyncReport
}

func (p *capturePublisher) PublishSyncReport(_ context.Context, report *models.SyncReport) error {
	p.report = report
	return nil
}
