// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
aggregate.go - Metric Aggregator

Folds raw rows sharing a (page, date) or (workspace, url, date) key into
exactly one snapshot. Count metrics sum across rows. Rate metrics use
weighted averages with max(weight, 1) per row: a zero-weight row must not
erase a non-zero rate, but must still count as weight 1 in the denominator.

Search CTR is derived once from the summed totals (clicks/impressions),
never averaged from per-row CTR values; averaging would double-weight
low-impression rows.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"sort"

	"github.com/brikx/sitepulse/internal/models"
)

// searchAccumulator folds search rows for one (page, date) key.
type searchAccumulator struct {
	clicks         float64
	impressions    float64
	positionTotal  float64
	positionWeight float64
}

// usageAccumulator folds usage rows for one (workspace, url, date) key.
type usageAccumulator struct {
	sessions        float64
	engagedSessions float64
	rateTotal       float64
	durationTotal   float64
	sessionWeight   float64
}

// weight applies the max(weight, 1) floor.
func weight(w float64) float64 {
	if w < 1 {
		return 1
	}
	return w
}

// searchKey identifies one search snapshot.
type searchKey struct {
	pageID string
	date   string
}

// AggregateSearchRows folds resolved search rows into one snapshot per
// (page, date). The resolve function maps a raw page reference to a page ID;
// rows resolving to "" are counted as unmatched and skipped.
func AggregateSearchRows(rows []models.RawMetricRow, resolve func(pageRef string) string) (snaps []models.SearchSnapshot, matched int) {
	acc := make(map[searchKey]*searchAccumulator)

	for _, row := range rows {
		pageID := resolve(row.PageRef)
		if pageID == "" {
			continue
		}
		matched++

		key := searchKey{pageID: pageID, date: row.Date}
		a, ok := acc[key]
		if !ok {
			a = &searchAccumulator{}
			acc[key] = a
		}
		a.clicks += row.Clicks
		a.impressions += row.Impressions

		w := weight(row.Impressions)
		a.positionTotal += row.Position * w
		a.positionWeight += w
	}

	snaps = make([]models.SearchSnapshot, 0, len(acc))
	for key, a := range acc {
		snap := models.SearchSnapshot{
			PageID:      key.pageID,
			Date:        key.date,
			Clicks:      int64(a.clicks),
			Impressions: int64(a.impressions),
		}
		if a.impressions > 0 {
			snap.CTR = a.clicks / a.impressions
		}
		if a.positionWeight > 0 {
			snap.Position = a.positionTotal / a.positionWeight
		}
		snaps = append(snaps, snap)
	}

	sortSearchSnapshots(snaps)
	return snaps, matched
}

// usageKey identifies one usage snapshot.
type usageKey struct {
	url  string
	date string
}

// AggregateUsageRows folds resolved usage rows into one snapshot per
// (workspace, url, date). The resolve function maps a raw page reference to
// a canonical URL; rows resolving to "" are dropped silently.
func AggregateUsageRows(workspaceID string, rows []models.RawMetricRow, resolve func(pageRef string) string) (snaps []models.UsageSnapshot, matched int) {
	acc := make(map[usageKey]*usageAccumulator)

	for _, row := range rows {
		canonURL := resolve(row.PageRef)
		if canonURL == "" {
			continue
		}
		matched++

		key := usageKey{url: canonURL, date: row.Date}
		a, ok := acc[key]
		if !ok {
			a = &usageAccumulator{}
			acc[key] = a
		}
		a.sessions += row.Sessions
		a.engagedSessions += row.EngagedSessions

		w := weight(row.Sessions)
		a.rateTotal += row.EngagementRate * w
		a.durationTotal += row.EngagementDuration * w
		a.sessionWeight += w
	}

	snaps = make([]models.UsageSnapshot, 0, len(acc))
	for key, a := range acc {
		snap := models.UsageSnapshot{
			WorkspaceID:     workspaceID,
			URL:             key.url,
			Date:            key.date,
			Sessions:        int64(a.sessions),
			EngagedSessions: int64(a.engagedSessions),
		}
		if a.sessionWeight > 0 {
			snap.EngagementRate = a.rateTotal / a.sessionWeight
			snap.EngagementDuration = a.durationTotal / a.sessionWeight
		}
		snaps = append(snaps, snap)
	}

	sortUsageSnapshots(snaps)
	return snaps, matched
}

// sortSearchSnapshots orders snapshots by date then page for deterministic
// writes and stable test expectations.
func sortSearchSnapshots(snaps []models.SearchSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Date != snaps[j].Date {
			return snaps[i].Date < snaps[j].Date
		}
		return snaps[i].PageID < snaps[j].PageID
	})
}

// sortUsageSnapshots orders snapshots by date then URL.
func sortUsageSnapshots(snaps []models.UsageSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].Date != snaps[j].Date {
			return snaps[i].Date < snaps[j].Date
		}
		return snaps[i].URL < snaps[j].URL
	})
}
