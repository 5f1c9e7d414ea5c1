// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

// Package models defines the domain types shared between the sync engine,
// the store, and the API layer.
package models

import "time"

// PageType classifies a content page by its path shape. The classification
// drives dashboard grouping only; sync behavior is identical across types.
type PageType string

const (
	PageTypePillar        PageType = "pillar"
	PageTypeNews          PageType = "news"
	PageTypeFAQ           PageType = "faq"
	PageTypeKnowledgeBase PageType = "knowledge_base"
	PageTypeRegional      PageType = "regional"
)

// Workspace is one monitored web property. Provider fields are optional:
// a workspace syncs from a provider only when that provider's property and
// credential are configured, otherwise the provider is skipped silently.
type Workspace struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`

	// SearchProperty is the search-performance API property identifier,
	// e.g. "sc-domain:example.com" or "https://example.com/".
	SearchProperty string `json:"search_property,omitempty"`

	// SearchRefreshToken is the long-lived delegated OAuth credential for
	// the search-performance API. Never serialized to API responses.
	SearchRefreshToken string `json:"-"`

	// UsageProperty is the usage-analytics property identifier. When empty
	// the process-wide default property applies.
	UsageProperty string `json:"usage_property,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Page is one known content page belonging to a workspace. Created by the
// surrounding content system or auto-registered when sync discovers traffic
// for an unknown URL.
type Page struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	URL         string    `json:"url"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	PageType    PageType  `json:"page_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// RawMetricRow is one upstream response entry. Rows are ephemeral: they are
// folded into daily snapshots before anything is persisted. Search rows fill
// Clicks/Impressions/Position; usage rows fill the session fields.
type RawMetricRow struct {
	Date    string
	PageRef string

	Clicks      float64
	Impressions float64
	Position    float64

	Sessions           float64
	EngagedSessions    float64
	EngagementRate     float64
	EngagementDuration float64
}

// SearchSnapshot is one day of search-performance metrics for one page.
// Unique per (PageID, Date).
type SearchSnapshot struct {
	PageID      string  `json:"page_id"`
	Date        string  `json:"date"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// UsageSnapshot is one day of usage-analytics metrics for one canonical URL
// in one workspace. Unique per (WorkspaceID, URL, Date). Keyed by URL rather
// than page ID because the usage provider reports bare paths that may not
// correspond to a registered page.
type UsageSnapshot struct {
	WorkspaceID        string  `json:"workspace_id"`
	URL                string  `json:"url"`
	Date               string  `json:"date"`
	Sessions           int64   `json:"sessions"`
	EngagedSessions    int64   `json:"engaged_sessions"`
	EngagementRate     float64 `json:"engagement_rate"`
	EngagementDuration float64 `json:"engagement_duration"`
}

// SyncRunResult summarizes one workspace's outcome in one orchestration run.
// A provider that was not configured contributes zero counts and no error.
type SyncRunResult struct {
	WorkspaceID   string   `json:"workspace_id"`
	Domain        string   `json:"domain"`
	SearchFetched int      `json:"search_fetched"`
	SearchMatched int      `json:"search_matched"`
	UsageFetched  int      `json:"usage_fetched"`
	UsageMatched  int      `json:"usage_matched"`
	Errors        []string `json:"errors,omitempty"`
}

// SyncReport is the full result of one orchestration run across workspaces.
type SyncReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Results    []SyncRunResult `json:"results"`
}

// TotalErrors counts error entries across all workspace results.
func (r *SyncReport) TotalErrors() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Errors)
	}
	return n
}
