// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

/*
token.go - Credential Broker

Obtains short-lived bearer tokens for the two upstream Google APIs using two
different grant types:

  - RefreshTokenSource redeems a per-workspace delegated refresh token for a
    search-performance token (grant_type=refresh_token).
  - ServiceAccountTokenSource signs an RS256 JWT assertion with the process
    service identity and exchanges it for a usage-analytics token
    (grant_type=urn:ietf:params:oauth:grant-type:jwt-bearer).

Both sources return ("", nil) when their credentials are absent so the
orchestrator can treat "not configured" as "provider skipped" rather than
"workspace failed". Tokens are used once per fetch and never cached.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/metrics"
)

const (
	scopeSearchReadonly = "https://www.googleapis.com/auth/webmasters.readonly"
	scopeUsageReadonly  = "https://www.googleapis.com/auth/analytics.readonly"

	grantTypeRefreshToken = "refresh_token"
	grantTypeJWTBearer    = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is the exp-iat span of the signed JWT assertion.
	assertionLifetime = time.Hour
)

// TokenSource obtains a short-lived bearer token for one upstream API.
// Implementations return ("", nil) when their credentials are not configured.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// tokenResponse is the token endpoint's JSON response for both grant types.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RefreshTokenSource exchanges a workspace's long-lived refresh token for a
// search-performance bearer token.
type RefreshTokenSource struct {
	google       *config.GoogleConfig
	refreshToken string
	client       *http.Client
}

// NewRefreshTokenSource creates a token source for one workspace's refresh
// token. The refresh token may be empty; Token then reports "not configured".
func NewRefreshTokenSource(google *config.GoogleConfig, refreshToken string, client *http.Client) *RefreshTokenSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RefreshTokenSource{google: google, refreshToken: refreshToken, client: client}
}

// Token redeems the refresh token. Returns ("", nil) when the workspace has
// no refresh token. Returns CredentialError when a refresh token exists but
// the process-wide OAuth client is not configured, since that combination is
// an operator mistake rather than an unconfigured workspace.
func (s *RefreshTokenSource) Token(ctx context.Context) (string, error) {
	if s.refreshToken == "" {
		return "", nil
	}
	if !s.google.HasOAuthClient() {
		return "", &CredentialError{
			Provider: "search",
			Reason:   "workspace has a refresh token but oauth client id/secret are not configured",
		}
	}

	form := url.Values{
		"grant_type":    {grantTypeRefreshToken},
		"client_id":     {s.google.OAuthClientID},
		"client_secret": {s.google.OAuthClientSecret},
		"refresh_token": {s.refreshToken},
		"scope":         {scopeSearchReadonly},
	}
	return exchangeToken(ctx, s.client, s.google.TokenURL, "search", form)
}

// ServiceAccountTokenSource signs a JWT-bearer assertion with the service
// identity's RSA key and exchanges it for a usage-analytics bearer token.
type ServiceAccountTokenSource struct {
	google *config.GoogleConfig
	client *http.Client

	// now is injected for deterministic assertion claims in tests.
	now func() time.Time
}

// NewServiceAccountTokenSource creates a token source for the process-wide
// service identity.
func NewServiceAccountTokenSource(google *config.GoogleConfig, client *http.Client) *ServiceAccountTokenSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ServiceAccountTokenSource{google: google, client: client, now: time.Now}
}

// Token builds and exchanges the signed assertion. Returns ("", nil) when
// the service identity is not configured.
func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	if !s.google.HasServiceAccount() {
		return "", nil
	}

	keyPEM, err := NormalizePrivateKey(s.google.ServiceAccountKey, s.google.ServiceAccountKeyBase64)
	if err != nil {
		return "", err
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(keyPEM))
	if err != nil {
		return "", &CredentialError{Provider: "usage", Reason: "private key does not parse as PEM RSA key"}
	}

	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   s.google.ServiceAccountEmail,
		"scope": scopeUsageReadonly,
		"aud":   s.google.TokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	})

	assertion, err := token.SignedString(key)
	if err != nil {
		return "", &CredentialError{Provider: "usage", Reason: "failed to sign assertion: " + err.Error()}
	}

	form := url.Values{
		"grant_type": {grantTypeJWTBearer},
		"assertion":  {assertion},
	}
	return exchangeToken(ctx, s.client, s.google.TokenURL, "usage", form)
}

// exchangeToken posts the form to the token endpoint and extracts the access
// token. Rejections surface as UpstreamAuthError with the endpoint's error
// code and description.
func exchangeToken(ctx context.Context, client *http.Client, tokenURL, provider string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &CredentialError{Provider: provider, Reason: "failed to build token request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return "", &UpstreamAuthError{Provider: provider, Code: "request_failed", Description: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck // response body close on read path
	metrics.RecordUpstreamRequest("token", resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return "", &UpstreamAuthError{Provider: provider, Code: "read_failed", Description: err.Error()}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &UpstreamAuthError{
			Provider: provider,
			Code:     "invalid_response",
			Description: strings.TrimSpace(string(body)),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || tok.Error != "" {
		code := tok.Error
		if code == "" {
			code = resp.Status
		}
		return "", &UpstreamAuthError{Provider: provider, Code: code, Description: tok.ErrorDescription}
	}
	if tok.AccessToken == "" {
		return "", &UpstreamAuthError{Provider: provider, Code: "empty_token"}
	}
	return tok.AccessToken, nil
}

// NormalizePrivateKey reconstructs a usable PEM key from the forms deployment
// environments mangle it into. The base64 form is preferred when present;
// literal \n sequences become real newlines and surrounding quotes are
// stripped. The result must contain a PRIVATE KEY block.
func NormalizePrivateKey(raw, b64 string) (string, error) {
	key := raw
	if b64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
		if err == nil {
			key = string(decoded)
		}
	}
	if key == "" {
		return "", errNoPrivateKey
	}

	key = strings.TrimSpace(key)
	key = strings.Trim(key, `"'`)
	key = strings.ReplaceAll(key, `\n`, "\n")

	if !strings.Contains(key, "BEGIN PRIVATE KEY") && !strings.Contains(key, "BEGIN RSA PRIVATE KEY") {
		return "", errKeyNotPEM
	}
	return key, nil
}

var (
	errNoPrivateKey = &CredentialError{Provider: "usage", Reason: "service account private key is empty"}
	errKeyNotPEM    = &CredentialError{Provider: "usage", Reason: "service account key does not contain a PEM PRIVATE KEY block"}
)

// MaskEmail redacts the local part of an identity email for diagnostics,
// keeping the first two characters and the domain.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	if len(local) <= 2 {
		return local[:1] + "***" + email[at:]
	}
	return local[:2] + "***" + email[at:]
}
