// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import (
	"net/url"
	"strings"
)

// Canonicalize normalizes a raw page reference into a stable matching key.
//
// Absolute URLs: the scheme and host are lower-cased, the trailing slash is
// stripped (the root path stays "/"), and both the full canonical URL and
// the bare path are returned. Relative or malformed input is treated as a
// path: leading slash ensured, trailing slash stripped, lower-cased; the
// full URL then equals the path.
//
// The dual mode exists because the search provider reports full URLs while
// the usage provider reports bare paths, and both must collapse to the same
// path key.
func Canonicalize(raw string) (fullURL, path string) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err == nil && u.IsAbs() && u.Host != "" {
		path = normalizePath(u.Path)
		origin := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
		return origin + path, path
	}

	path = normalizePath(raw)
	return path, path
}

// normalizePath lower-cases a path, ensures a leading slash, and strips the
// trailing slash except for the root.
func normalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
