// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import "fmt"

// CredentialError indicates missing or malformed local configuration for a
// provider. Not retryable without operator action. A fully absent credential
// is NOT a CredentialError; absent means the provider is skipped silently.
type CredentialError struct {
	Provider string
	Reason   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credential error: %s", e.Provider, e.Reason)
}

// UpstreamAuthError indicates a token exchange was rejected by the token
// endpoint, typically a revoked or expired refresh token or a bad assertion.
type UpstreamAuthError struct {
	Provider    string
	Code        string
	Description string
}

func (e *UpstreamAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s token exchange rejected: %s (%s)", e.Provider, e.Code, e.Description)
	}
	return fmt.Sprintf("%s token exchange rejected: %s", e.Provider, e.Code)
}

// UpstreamFetchError indicates a non-success response from a data query.
// The body is captured (capped at 64KB) for diagnosis.
type UpstreamFetchError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("%s fetch failed: HTTP %d: %s", e.Provider, e.Status, e.Body)
}
