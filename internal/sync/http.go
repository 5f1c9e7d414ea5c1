// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brikx/sitepulse/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is kept for
// diagnostics (64KB).
const maxErrorBodySize = 64 * 1024

// readBodyForError reads the response body for error reporting, capped to
// prevent unbounded memory allocation.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte(fmt.Sprintf("failed to read response body: %v", err))
	}
	return body
}

// postJSONWithRetry performs a POST with a JSON body and bearer token,
// retrying HTTP 429 with exponential backoff (base delay doubling per
// attempt, Retry-After honored when present). The context cancels both the
// request and backoff waits.
func postJSONWithRetry(ctx context.Context, client *http.Client, endpoint, reqURL, token string,
	body []byte, maxRetries int, baseDelay time.Duration) (*http.Response, error) {

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		metrics.RecordUpstreamRequest(endpoint, resp.StatusCode, time.Since(start))

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close() // retrying anyway

		if attempt == maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", maxRetries)
			break
		}

		metrics.UpstreamRetries.WithLabelValues(endpoint).Inc()

		// Exponential backoff: base, 2x, 4x, 8x, 16x.
		delay := baseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
