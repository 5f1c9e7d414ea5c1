// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
gsc_client.go - Search-Performance Fetch Strategy

Retrieves search analytics rows from the Search Console API with two-level
chunking:

  - Outer loop: the requested date range is split into 15-day sub-windows so
    no single sub-window realistically exceeds the per-request row ceiling.
    Very high-traffic properties degrade once a request chain accumulates
    too many rows; bounded sub-windows keep each chain short.
  - Inner loop: within a sub-window, requests advance startRow by rowLimit
    until a response returns fewer rows than rowLimit.

Rows from all pages and sub-windows are concatenated into one in-memory
sequence per fetch call. Any non-success response aborts the fetch with an
UpstreamFetchError; partial rows are discarded so a failed provider never
produces a partial snapshot write.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/logging"
	"github.com/brikx/sitepulse/internal/models"
)

// searchQueryRequest is the searchAnalytics/query request body.
type searchQueryRequest struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
	RowLimit   int      `json:"rowLimit"`
	StartRow   int      `json:"startRow"`
}

// searchQueryResponse is the searchAnalytics/query response body.
type searchQueryResponse struct {
	Rows []searchAPIRow `json:"rows"`
}

// searchAPIRow is one response entry. Keys holds the requested dimensions in
// order: [date, pageUrl].
type searchAPIRow struct {
	Keys        []string `json:"keys"`
	Clicks      float64  `json:"clicks"`
	Impressions float64  `json:"impressions"`
	CTR         float64  `json:"ctr"`
	Position    float64  `json:"position"`
}

// SearchFetcher implements FetchStrategy for the search-performance API.
type SearchFetcher struct {
	google  *config.GoogleConfig
	sync    *config.SyncConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

// NewSearchFetcher creates the chunked search-performance fetch strategy.
func NewSearchFetcher(google *config.GoogleConfig, syncCfg *config.SyncConfig, client *http.Client) *SearchFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if syncCfg.RequestsPerSecond > 0 {
		limit = rate.Limit(syncCfg.RequestsPerSecond)
	}
	return &SearchFetcher{
		google:  google,
		sync:    syncCfg,
		client:  client,
		breaker: newBreaker("search-api"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Provider implements FetchStrategy.
func (f *SearchFetcher) Provider() string { return "search" }

// Configured implements FetchStrategy. A workspace syncs search data only
// when it carries both a property and a refresh token, and the process has
// an OAuth client to redeem the token with.
func (f *SearchFetcher) Configured(ws *models.Workspace) bool {
	return ws.SearchProperty != "" && ws.SearchRefreshToken != "" && f.google.HasOAuthClient()
}

// Fetch implements FetchStrategy.
func (f *SearchFetcher) Fetch(ctx context.Context, ws *models.Workspace, start, end time.Time) ([]models.RawMetricRow, error) {
	token, err := NewRefreshTokenSource(f.google, ws.SearchRefreshToken, f.client).Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	queryURL := fmt.Sprintf("%s/sites/%s/searchAnalytics/query",
		f.google.SearchAPIBaseURL, url.PathEscape(ws.SearchProperty))

	var all []models.RawMetricRow
	for _, w := range splitWindows(start, end, f.sync.WindowDays) {
		rows, err := f.fetchWindow(ctx, queryURL, token, w)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	logging.Debug().
		Str("workspace", ws.Domain).
		Int("rows", len(all)).
		Msg("search fetch complete")
	return all, nil
}

// Probe issues a single one-row query for yesterday to verify the
// workspace's credentials end to end. Returns the number of rows the probe
// saw (0 or 1).
func (f *SearchFetcher) Probe(ctx context.Context, ws *models.Workspace) (int, error) {
	token, err := NewRefreshTokenSource(f.google, ws.SearchRefreshToken, f.client).Token(ctx)
	if err != nil {
		return 0, err
	}
	if token == "" {
		return 0, &CredentialError{Provider: "search", Reason: "no refresh token configured"}
	}

	day := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	body, err := json.Marshal(searchQueryRequest{
		StartDate:  day,
		EndDate:    day,
		Dimensions: []string{"date", "page"},
		RowLimit:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal probe query: %w", err)
	}

	queryURL := fmt.Sprintf("%s/sites/%s/searchAnalytics/query",
		f.google.SearchAPIBaseURL, url.PathEscape(ws.SearchProperty))

	respBody, err := f.breaker.Execute(func() ([]byte, error) {
		return f.doQuery(ctx, queryURL, token, body)
	})
	if err != nil {
		return 0, err
	}

	var parsed searchQueryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse probe response: %w", err)
	}
	return len(parsed.Rows), nil
}

// fetchWindow pages through one sub-window with increasing startRow until a
// short page signals exhaustion.
func (f *SearchFetcher) fetchWindow(ctx context.Context, queryURL, token string, w dateWindow) ([]models.RawMetricRow, error) {
	var rows []models.RawMetricRow

	for startRow := 0; ; startRow += f.sync.PageSize {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := json.Marshal(searchQueryRequest{
			StartDate:  w.start.Format(dateLayout),
			EndDate:    w.end.Format(dateLayout),
			Dimensions: []string{"date", "page"},
			RowLimit:   f.sync.PageSize,
			StartRow:   startRow,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal query: %w", err)
		}

		respBody, err := f.breaker.Execute(func() ([]byte, error) {
			return f.doQuery(ctx, queryURL, token, body)
		})
		if err != nil {
			return nil, err
		}

		var parsed searchQueryResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse search response: %w", err)
		}

		for _, r := range parsed.Rows {
			if len(r.Keys) < 2 {
				continue
			}
			rows = append(rows, models.RawMetricRow{
				Date:        r.Keys[0],
				PageRef:     r.Keys[1],
				Clicks:      r.Clicks,
				Impressions: r.Impressions,
				Position:    r.Position,
			})
		}

		// A short page means the sub-window is exhausted.
		if len(parsed.Rows) < f.sync.PageSize {
			break
		}
	}

	return rows, nil
}

// doQuery issues one query request and returns the response body.
func (f *SearchFetcher) doQuery(ctx context.Context, queryURL, token string, body []byte) ([]byte, error) {
	resp, err := postJSONWithRetry(ctx, f.client, "search_query", queryURL, token, body,
		f.sync.RetryAttempts, f.sync.RetryDelay)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // response body close on read path

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamFetchError{
			Provider: "search",
			Status:   resp.StatusCode,
			Body:     string(readBodyForError(resp.Body)),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return respBody, nil
}
