// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
ga4_client.go - Usage-Analytics Fetch Strategy

Retrieves usage rows from the Analytics Data API's runReport endpoint. The
usage provider's per-request row ceiling is high enough that one bounded
request over the full date range suffices, so this strategy is a single call
per workspace rather than the chunked pagination the search strategy needs.
The contract is identical so call sites need not know which chunking mode is
in effect.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/logging"
	"github.com/brikx/sitepulse/internal/models"
)

// usageReportRequest is the runReport request body.
type usageReportRequest struct {
	DateRanges []usageDateRange `json:"dateRanges"`
	Dimensions []usageDimension `json:"dimensions"`
	Metrics    []usageMetric    `json:"metrics"`
	Limit      string           `json:"limit"`
}

type usageDateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type usageDimension struct {
	Name string `json:"name"`
}

type usageMetric struct {
	Name string `json:"name"`
}

// usageReportResponse is the runReport response body.
type usageReportResponse struct {
	Rows []usageAPIRow `json:"rows"`
}

type usageAPIRow struct {
	DimensionValues []usageValue `json:"dimensionValues"`
	MetricValues    []usageValue `json:"metricValues"`
}

type usageValue struct {
	Value string `json:"value"`
}

// UsageFetcher implements FetchStrategy for the usage-analytics API.
type UsageFetcher struct {
	google  *config.GoogleConfig
	sync    *config.SyncConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

// NewUsageFetcher creates the single-call usage-analytics fetch strategy.
func NewUsageFetcher(google *config.GoogleConfig, syncCfg *config.SyncConfig, client *http.Client) *UsageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if syncCfg.RequestsPerSecond > 0 {
		limit = rate.Limit(syncCfg.RequestsPerSecond)
	}
	return &UsageFetcher{
		google:  google,
		sync:    syncCfg,
		client:  client,
		breaker: newBreaker("usage-api"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Provider implements FetchStrategy.
func (f *UsageFetcher) Provider() string { return "usage" }

// Configured implements FetchStrategy. The usage provider needs the process
// service identity plus a property ID, which may come from the workspace or
// the process-wide default.
func (f *UsageFetcher) Configured(ws *models.Workspace) bool {
	return f.google.HasServiceAccount() && f.propertyFor(ws) != ""
}

// propertyFor resolves the usage property, falling back to the process-wide
// default when the workspace carries none.
func (f *UsageFetcher) propertyFor(ws *models.Workspace) string {
	if ws.UsageProperty != "" {
		return ws.UsageProperty
	}
	return f.google.DefaultUsageProperty
}

// Fetch implements FetchStrategy.
func (f *UsageFetcher) Fetch(ctx context.Context, ws *models.Workspace, start, end time.Time) ([]models.RawMetricRow, error) {
	property := f.propertyFor(ws)
	if property == "" {
		return nil, nil
	}

	token, err := NewServiceAccountTokenSource(f.google, f.client).Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(usageReportRequest{
		DateRanges: []usageDateRange{{StartDate: start.Format(dateLayout), EndDate: end.Format(dateLayout)}},
		Dimensions: []usageDimension{{Name: "date"}, {Name: "pagePath"}},
		Metrics: []usageMetric{
			{Name: "sessions"},
			{Name: "engagedSessions"},
			{Name: "engagementRate"},
			{Name: "userEngagementDuration"},
		},
		Limit: strconv.Itoa(f.sync.PageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report request: %w", err)
	}

	reportURL := fmt.Sprintf("%s/properties/%s:runReport", f.google.UsageAPIBaseURL, property)

	respBody, err := f.breaker.Execute(func() ([]byte, error) {
		return f.doReport(ctx, reportURL, token, body)
	})
	if err != nil {
		return nil, err
	}

	var parsed usageReportResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse report response: %w", err)
	}

	rows := make([]models.RawMetricRow, 0, len(parsed.Rows))
	for _, r := range parsed.Rows {
		if len(r.DimensionValues) < 2 || len(r.MetricValues) < 4 {
			continue
		}
		rows = append(rows, models.RawMetricRow{
			Date:               normalizeUsageDate(r.DimensionValues[0].Value),
			PageRef:            r.DimensionValues[1].Value,
			Sessions:           parseMetricValue(r.MetricValues[0].Value),
			EngagedSessions:    parseMetricValue(r.MetricValues[1].Value),
			EngagementRate:     parseMetricValue(r.MetricValues[2].Value),
			EngagementDuration: parseMetricValue(r.MetricValues[3].Value),
		})
	}

	logging.Debug().
		Str("workspace", ws.Domain).
		Int("rows", len(rows)).
		Msg("usage fetch complete")
	return rows, nil
}

// Probe issues a single one-row report for yesterday against the given
// property to verify the service identity end to end. Returns the number of
// rows the probe saw (0 or 1).
func (f *UsageFetcher) Probe(ctx context.Context, property string) (int, error) {
	if property == "" {
		return 0, &CredentialError{Provider: "usage", Reason: "no usage property configured"}
	}

	token, err := NewServiceAccountTokenSource(f.google, f.client).Token(ctx)
	if err != nil {
		return 0, err
	}
	if token == "" {
		return 0, &CredentialError{Provider: "usage", Reason: "service account is not configured"}
	}

	day := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	body, err := json.Marshal(usageReportRequest{
		DateRanges: []usageDateRange{{StartDate: day, EndDate: day}},
		Dimensions: []usageDimension{{Name: "date"}, {Name: "pagePath"}},
		Metrics:    []usageMetric{{Name: "sessions"}},
		Limit:      "1",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal probe request: %w", err)
	}

	reportURL := fmt.Sprintf("%s/properties/%s:runReport", f.google.UsageAPIBaseURL, property)

	respBody, err := f.breaker.Execute(func() ([]byte, error) {
		return f.doReport(ctx, reportURL, token, body)
	})
	if err != nil {
		return 0, err
	}

	var parsed usageReportResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse probe response: %w", err)
	}
	return len(parsed.Rows), nil
}

// doReport issues one runReport request and returns the response body.
func (f *UsageFetcher) doReport(ctx context.Context, reportURL, token string, body []byte) ([]byte, error) {
	resp, err := postJSONWithRetry(ctx, f.client, "usage_report", reportURL, token, body,
		f.sync.RetryAttempts, f.sync.RetryDelay)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // response body close on read path

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamFetchError{
			Provider: "usage",
			Status:   resp.StatusCode,
			Body:     string(readBodyForError(resp.Body)),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report response: %w", err)
	}
	return respBody, nil
}

// normalizeUsageDate converts the report's YYYYMMDD date dimension to the
// pipeline's YYYY-MM-DD form.
func normalizeUsageDate(d string) string {
	if len(d) == 8 {
		return d[:4] + "-" + d[4:6] + "-" + d[6:]
	}
	return d
}

// parseMetricValue parses a report metric string, treating unparseable
// values as zero.
func parseMetricValue(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
