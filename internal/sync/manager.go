// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
manager.go - Sync Orchestrator

Iterates all workspaces sequentially and runs the search and usage provider
flows independently per workspace. Failures are caught at the provider
boundary: a failing provider contributes an error string to that workspace's
result and never aborts the other provider, the workspace, or the run.
Workspaces missing provider configuration contribute zero counts with no
error.

Sequential processing is deliberate: it bounds simultaneous upstream load
and keeps per-workspace row accounting and error attribution exact. Total
workspace count is small; throughput is not the constraint.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/logging"
	"github.com/brikx/sitepulse/internal/metrics"
	"github.com/brikx/sitepulse/internal/models"
)

// ErrSyncInProgress is returned by TriggerSync while a run is executing.
var ErrSyncInProgress = errors.New("sync already in progress")

// Store is the persistence surface the orchestrator needs. Satisfied by
// *database.DB.
type Store interface {
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
	ListPagesByWorkspace(ctx context.Context, workspaceID string) ([]models.Page, error)
	CreatePage(ctx context.Context, page *models.Page) error
	UpsertSearchSnapshot(ctx context.Context, snap *models.SearchSnapshot) error
	UpsertUsageSnapshot(ctx context.Context, snap *models.UsageSnapshot) error
}

// EventPublisher publishes a completed sync report to the event bus.
// Publishing failures are logged, never propagated into the run result.
type EventPublisher interface {
	PublishSyncReport(ctx context.Context, report *models.SyncReport) error
}

// Manager orchestrates periodic and on-demand sync runs.
type Manager struct {
	cfg    *config.Config
	store  Store
	search FetchStrategy
	usage  FetchStrategy

	mu         sync.Mutex
	running    bool
	lastRun    time.Time
	lastReport *models.SyncReport
	publisher  EventPublisher

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// NewManager creates a sync manager wired to the given store and fetch
// strategies.
func NewManager(cfg *config.Config, store Store, search, usage FetchStrategy) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		search:   search,
		usage:    usage,
		stopChan: make(chan struct{}),
	}
}

// SetEventPublisher attaches an optional report publisher. Passing nil
// disables publishing.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = p
}

// Start begins the periodic sync loop. Returns immediately; the loop runs
// in an internal goroutine until Stop is called. When the scheduler is
// disabled in config, Start is a no-op and only manual triggers run syncs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("sync manager already started")
	}
	m.started = true
	m.mu.Unlock()

	if !m.cfg.Sync.Enabled {
		logging.Info().Msg("sync scheduler disabled; manual triggers only")
		return nil
	}

	m.wg.Add(1)
	go m.syncLoop(ctx)

	logging.Info().
		Dur("interval", m.cfg.Sync.Interval).
		Int("lookback_days", m.cfg.Sync.LookbackDays).
		Msg("sync scheduler started")
	return nil
}

// Stop terminates the sync loop and waits for in-flight work to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()
	return nil
}

// syncLoop runs an initial sync, then one per interval tick.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	if _, err := m.RunSync(ctx, 0); err != nil && !errors.Is(err, ErrSyncInProgress) {
		logging.Error().Err(err).Msg("initial sync failed")
	}

	ticker := time.NewTicker(m.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.RunSync(ctx, 0); err != nil && !errors.Is(err, ErrSyncInProgress) {
				logging.Error().Err(err).Msg("scheduled sync failed")
			}
		}
	}
}

// TriggerSync starts an asynchronous run covering the given number of
// lookback days (0 uses the configured default). Returns ErrSyncInProgress
// when a run is already executing.
func (m *Manager) TriggerSync(days int) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrSyncInProgress
	}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.RunSync(context.Background(), days); err != nil && !errors.Is(err, ErrSyncInProgress) {
			logging.Error().Err(err).Msg("triggered sync failed")
		}
	}()
	return nil
}

// IsRunning reports whether a run is executing.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastSyncTime returns when the last run finished (zero before any run).
func (m *Manager) LastSyncTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRun
}

// LastReport returns the last completed run's report, or nil.
func (m *Manager) LastReport() *models.SyncReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReport
}

// RunSync executes one full orchestration run across all workspaces. Only
// one run executes at a time; concurrent callers get ErrSyncInProgress.
func (m *Manager) RunSync(ctx context.Context, days int) (*models.SyncReport, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	m.running = true
	m.mu.Unlock()

	metrics.SyncInProgress.Set(1)
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		metrics.SyncInProgress.Set(0)
	}()

	if days <= 0 {
		days = m.cfg.Sync.LookbackDays
	}
	now := time.Now().UTC()
	end := now.AddDate(0, 0, -m.cfg.Sync.EndOffsetDays)
	start := now.AddDate(0, 0, -days)

	workspaces, err := m.store.ListWorkspaces(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	report := &models.SyncReport{StartedAt: now}
	logging.Info().
		Int("workspaces", len(workspaces)).
		Str("start", start.Format(dateLayout)).
		Str("end", end.Format(dateLayout)).
		Msg("sync run started")

	for i := range workspaces {
		ws := &workspaces[i]
		result := m.syncWorkspace(ctx, ws, start, end)
		report.Results = append(report.Results, result)
	}

	report.FinishedAt = time.Now().UTC()
	metrics.RecordSyncRun(report.FinishedAt.Sub(report.StartedAt), report.TotalErrors(), false)

	m.mu.Lock()
	m.lastRun = report.FinishedAt
	m.lastReport = report
	publisher := m.publisher
	m.mu.Unlock()

	if publisher != nil {
		if err := publisher.PublishSyncReport(ctx, report); err != nil {
			logging.Warn().Err(err).Msg("failed to publish sync report")
		}
	}

	logging.Info().
		Int("workspaces", len(report.Results)).
		Int("errors", report.TotalErrors()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("sync run finished")
	return report, nil
}

// syncWorkspace runs both provider flows for one workspace, isolating
// failures per provider.
func (m *Manager) syncWorkspace(ctx context.Context, ws *models.Workspace, start, end time.Time) models.SyncRunResult {
	result := models.SyncRunResult{WorkspaceID: ws.ID, Domain: ws.Domain}

	if m.search.Configured(ws) {
		fetched, written, err := m.syncSearch(ctx, ws, start, end)
		result.SearchFetched = fetched
		result.SearchMatched = written
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("search: %v", err))
			metrics.SyncProviderErrors.WithLabelValues("search", errorTypeOf(err)).Inc()
			logging.Error().Err(err).Str("workspace", ws.Domain).Msg("search sync failed")
		}
	}

	if m.usage.Configured(ws) {
		fetched, written, err := m.syncUsage(ctx, ws, start, end)
		result.UsageFetched = fetched
		result.UsageMatched = written
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("usage: %v", err))
			metrics.SyncProviderErrors.WithLabelValues("usage", errorTypeOf(err)).Inc()
			logging.Error().Err(err).Str("workspace", ws.Domain).Msg("usage sync failed")
		}
	}

	return result
}

// syncSearch runs the search flow: fetch, reconcile with auto-registration,
// aggregate, upsert. Returns raw rows fetched and snapshots written.
func (m *Manager) syncSearch(ctx context.Context, ws *models.Workspace, start, end time.Time) (fetched, written int, err error) {
	rows, err := m.search.Fetch(ctx, ws, start, end)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	fetched = len(rows)

	pages, err := m.store.ListPagesByWorkspace(ctx, ws.ID)
	if err != nil {
		return fetched, 0, err
	}
	rec := NewReconciler(ws.ID, pages, m.store)

	var registerErr error
	snaps, matched := AggregateSearchRows(rows, func(pageRef string) string {
		page, err := rec.ResolveOrRegister(ctx, pageRef)
		if err != nil {
			registerErr = err
			return ""
		}
		return page.ID
	})
	if registerErr != nil {
		return fetched, 0, registerErr
	}

	for i := range snaps {
		if err := m.store.UpsertSearchSnapshot(ctx, &snaps[i]); err != nil {
			return fetched, written, err
		}
		written++
	}

	metrics.RecordProviderRows("search", fetched, matched, written)
	return fetched, written, nil
}

// syncUsage runs the usage flow: fetch, reconcile without auto-registration,
// aggregate, upsert. Unmatched rows are dropped silently.
func (m *Manager) syncUsage(ctx context.Context, ws *models.Workspace, start, end time.Time) (fetched, written int, err error) {
	rows, err := m.usage.Fetch(ctx, ws, start, end)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	fetched = len(rows)

	pages, err := m.store.ListPagesByWorkspace(ctx, ws.ID)
	if err != nil {
		return fetched, 0, err
	}
	rec := NewReconciler(ws.ID, pages, m.store)

	snaps, matched := AggregateUsageRows(ws.ID, rows, func(pageRef string) string {
		page := rec.Resolve(pageRef)
		if page == nil {
			return ""
		}
		canonURL, _ := Canonicalize(page.URL)
		return canonURL
	})

	for i := range snaps {
		if err := m.store.UpsertUsageSnapshot(ctx, &snaps[i]); err != nil {
			return fetched, written, err
		}
		written++
	}

	metrics.RecordProviderRows("usage", fetched, matched, written)
	return fetched, written, nil
}

// errorTypeOf buckets provider errors for metrics labels.
func errorTypeOf(err error) string {
	var credErr *CredentialError
	var authErr *UpstreamAuthError
	var fetchErr *UpstreamFetchError
	switch {
	case errors.As(err, &credErr):
		return "credential"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &fetchErr):
		return "fetch"
	default:
		return "store"
	}
}
