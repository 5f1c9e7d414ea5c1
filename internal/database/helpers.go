// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package database

import (
	"database/sql"
	"strings"
)

// nullIfEmpty maps empty strings to SQL NULL so optional workspace fields
// stay NULL instead of empty text.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueConstraintError detects DuckDB unique/primary key violations.
// DuckDB reports these as constraint errors in the message text; the driver
// does not expose a typed error.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "primary key")
}
