// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/metrics"
)

// rate limits per endpoint class
var (
	rateLimitSyncTrigger = struct {
		requests int
		window   time.Duration
	}{10, time.Minute}

	rateLimitProviderTest = struct {
		requests int
		window   time.Duration
	}{5, time.Minute}
)

// corsMiddleware builds the CORS handler from configured origins. An empty
// origin list denies cross-origin requests; wildcard must be opted into
// explicitly.
func corsMiddleware(cfg *config.APIConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
}

// rateLimitMiddleware is the default per-IP limiter for the API surface.
func rateLimitMiddleware(cfg *config.APIConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitReqs <= 0 {
		return passthrough
	}
	return httprate.Limit(cfg.RateLimitReqs, cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP))
}

// rateLimitSync is the stricter limiter for sync triggers; runs are
// resource-intensive against the upstream APIs.
func rateLimitSync() func(http.Handler) http.Handler {
	return httprate.LimitByIP(rateLimitSyncTrigger.requests, rateLimitSyncTrigger.window)
}

// rateLimitTest is the strictest limiter, for provider connection tests.
// Each test spends real upstream quota.
func rateLimitTest() func(http.Handler) http.Handler {
	return httprate.LimitByIP(rateLimitProviderTest.requests, rateLimitProviderTest.window)
}

func passthrough(next http.Handler) http.Handler { return next }

// securityHeaders adds baseline security headers to API responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requestMetrics records per-request Prometheus metrics.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.APIActiveRequests.Inc()
		defer metrics.APIActiveRequests.Dec()

		ww := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		metrics.RecordAPIRequest(r.Method, r.URL.Path,
			strconv.Itoa(ww.statusCode), time.Since(start))
	})
}

// statusResponseWriter captures the response status code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
