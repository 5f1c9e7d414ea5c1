// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

// Package config loads and validates the Sitepulse process configuration.
//
// Configuration is layered with koanf: built-in defaults, then an optional
// YAML file, then environment variables. Environment variables win. Provider
// credentials are deliberately optional: a workspace without them is skipped
// by the sync engine, never treated as a startup error.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Sitepulse server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Google   GoogleConfig   `koanf:"google"`
	Sync     SyncConfig     `koanf:"sync"`
	API      APIConfig      `koanf:"api"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB file path. ":memory:" is accepted for tests.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads limits DuckDB worker threads. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// GoogleConfig holds the process-wide Google API identities. All fields are
// optional; missing values disable the corresponding provider per workspace.
type GoogleConfig struct {
	// OAuthClientID and OAuthClientSecret identify the OAuth application
	// used to redeem per-workspace refresh tokens for the search API.
	OAuthClientID     string `koanf:"oauth_client_id"`
	OAuthClientSecret string `koanf:"oauth_client_secret"`

	// ServiceAccountEmail is the usage-analytics service identity.
	ServiceAccountEmail string `koanf:"service_account_email"`

	// ServiceAccountKey is the RSA private key in PEM form. Literal \n
	// sequences and surrounding quotes are normalized before parsing.
	ServiceAccountKey string `koanf:"service_account_key"`

	// ServiceAccountKeyBase64 is the same key base64-encoded. Preferred
	// over ServiceAccountKey when both are set, since base64 survives
	// env-file round trips without newline mangling.
	ServiceAccountKeyBase64 string `koanf:"service_account_key_base64"`

	// DefaultUsageProperty is the fallback usage-analytics property ID
	// for workspaces that do not carry their own.
	DefaultUsageProperty string `koanf:"default_usage_property"`

	// TokenURL is the OAuth token endpoint. Overridable for tests.
	TokenURL string `koanf:"token_url"`

	// SearchAPIBaseURL and UsageAPIBaseURL are the data endpoints.
	// Overridable for tests.
	SearchAPIBaseURL string `koanf:"search_api_base_url"`
	UsageAPIBaseURL  string `koanf:"usage_api_base_url"`
}

// SyncConfig holds sync engine settings.
type SyncConfig struct {
	// Enabled controls the periodic scheduler. Manual triggers via the API
	// work regardless.
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// LookbackDays and EndOffsetDays bound the default fetch window:
	// [today-LookbackDays, today-EndOffsetDays]. The end offset exists
	// because both providers report the most recent day incompletely.
	LookbackDays  int `koanf:"lookback_days"`
	EndOffsetDays int `koanf:"end_offset_days"`

	// WindowDays is the sub-window span for the chunked search fetch.
	WindowDays int `koanf:"window_days"`

	// PageSize is the per-request row limit for paginated fetches.
	PageSize int `koanf:"page_size"`

	// RequestsPerSecond paces upstream calls. 0 disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// RetryAttempts and RetryDelay govern 429 backoff on upstream calls.
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// NATSConfig holds the optional sync-completion event publishing settings.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Topic   string `koanf:"topic"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// HasOAuthClient reports whether the refresh-token exchange is configured.
func (g *GoogleConfig) HasOAuthClient() bool {
	return g.OAuthClientID != "" && g.OAuthClientSecret != ""
}

// HasServiceAccount reports whether the JWT-bearer identity is configured.
func (g *GoogleConfig) HasServiceAccount() bool {
	return g.ServiceAccountEmail != "" &&
		(g.ServiceAccountKey != "" || g.ServiceAccountKeyBase64 != "")
}

// Validate checks internal consistency. Missing provider credentials are not
// errors; only values that would make the engine misbehave are rejected.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %v", c.Sync.Interval)
	}
	if c.Sync.LookbackDays <= 0 {
		return fmt.Errorf("sync.lookback_days must be positive, got %d", c.Sync.LookbackDays)
	}
	if c.Sync.EndOffsetDays < 0 {
		return fmt.Errorf("sync.end_offset_days must not be negative, got %d", c.Sync.EndOffsetDays)
	}
	if c.Sync.LookbackDays <= c.Sync.EndOffsetDays {
		return fmt.Errorf("sync.lookback_days (%d) must exceed sync.end_offset_days (%d)",
			c.Sync.LookbackDays, c.Sync.EndOffsetDays)
	}
	if c.Sync.WindowDays <= 0 {
		return fmt.Errorf("sync.window_days must be positive, got %d", c.Sync.WindowDays)
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync.page_size must be positive, got %d", c.Sync.PageSize)
	}
	if c.Sync.RetryAttempts < 0 {
		return fmt.Errorf("sync.retry_attempts must not be negative, got %d", c.Sync.RetryAttempts)
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default=%d max=%d",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url must be set when nats.enabled is true")
	}
	return nil
}
