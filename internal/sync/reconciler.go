// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
reconciler.go - Page Registry Reconciler

Maps each raw row's page reference to a known page record. Two lookup
indexes are built once per workspace sync: canonical full URL to page, and
canonical path to page. Full-URL match is attempted first, then path.

Search rows referencing an unknown URL auto-register a new page so that a
manually curated page list never silently drops traffic to unregistered
pages. The new page enters both indexes immediately, so later rows in the
same run resolve against it instead of creating duplicates. Usage rows never
auto-register: bare paths from the usage provider are noisier and less
authoritative for discovering new pages, so unmatched usage rows are dropped
silently.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"net/url"
	"strings"

	"github.com/brikx/sitepulse/internal/logging"
	"github.com/brikx/sitepulse/internal/metrics"
	"github.com/brikx/sitepulse/internal/models"
)

// PageCreator persists auto-registered pages. Satisfied by *database.DB.
type PageCreator interface {
	CreatePage(ctx context.Context, page *models.Page) error
}

// Reconciler resolves raw rows against one workspace's page registry.
// Not safe for concurrent use; build one per workspace per run.
type Reconciler struct {
	workspaceID string
	store       PageCreator

	byURL  map[string]*models.Page
	byPath map[string]*models.Page

	autoRegistered int
}

// NewReconciler builds the dual lookup index from the workspace's registered
// pages. Indexes are rebuilt per run rather than cached, trading redundant
// work for freshness.
func NewReconciler(workspaceID string, pages []models.Page, store PageCreator) *Reconciler {
	r := &Reconciler{
		workspaceID: workspaceID,
		store:       store,
		byURL:       make(map[string]*models.Page, len(pages)),
		byPath:      make(map[string]*models.Page, len(pages)),
	}
	for i := range pages {
		p := &pages[i]
		canonURL, canonPath := Canonicalize(p.URL)
		r.byURL[canonURL] = p
		if _, exists := r.byPath[canonPath]; !exists {
			r.byPath[canonPath] = p
		}
	}
	return r
}

// Resolve matches a raw page reference to a known page. Returns nil when no
// match exists.
func (r *Reconciler) Resolve(pageRef string) *models.Page {
	canonURL, canonPath := Canonicalize(pageRef)
	if p, ok := r.byURL[canonURL]; ok {
		return p
	}
	if p, ok := r.byPath[canonPath]; ok {
		return p
	}
	return nil
}

// ResolveOrRegister matches like Resolve but auto-registers a new page on a
// miss. Only the search flow calls this; it is the flow that reports full
// URLs first-seen.
func (r *Reconciler) ResolveOrRegister(ctx context.Context, pageRef string) (*models.Page, error) {
	if p := r.Resolve(pageRef); p != nil {
		return p, nil
	}

	canonURL, canonPath := Canonicalize(pageRef)
	page := &models.Page{
		WorkspaceID: r.workspaceID,
		URL:         canonURL,
		Path:        canonPath,
		Title:       titleFromPath(canonPath),
		PageType:    ClassifyPath(canonPath),
	}
	if err := r.store.CreatePage(ctx, page); err != nil {
		return nil, err
	}

	r.byURL[canonURL] = page
	r.byPath[canonPath] = page
	r.autoRegistered++
	metrics.SyncPagesAutoRegistered.Inc()

	logging.Info().
		Str("workspace", r.workspaceID).
		Str("url", canonURL).
		Str("page_type", string(page.PageType)).
		Msg("auto-registered page discovered in search traffic")
	return page, nil
}

// AutoRegistered returns how many pages this run registered.
func (r *Reconciler) AutoRegistered() int {
	return r.autoRegistered
}

// titleFromPath derives a human-readable title from the last non-empty path
// segment: URL-decoded, separators replaced with spaces.
func titleFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	last := ""
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			last = segments[i]
			break
		}
	}
	if last == "" {
		return "Home"
	}
	if decoded, err := url.PathUnescape(last); err == nil {
		last = decoded
	}
	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")
	return strings.TrimSpace(last)
}

// ClassifyPath infers a page classification from path keywords. Dutch
// content sites drive the keyword set.
func ClassifyPath(path string) models.PageType {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "/nieuws") || strings.Contains(p, "/blog"):
		return models.PageTypeNews
	case strings.Contains(p, "/faq") || strings.Contains(p, "veelgestelde-vragen"):
		return models.PageTypeFAQ
	case strings.Contains(p, "/kennisbank"):
		return models.PageTypeKnowledgeBase
	case strings.Contains(p, "/regio") || strings.Contains(p, "/locatie"):
		return models.PageTypeRegional
	default:
		return models.PageTypePillar
	}
}
