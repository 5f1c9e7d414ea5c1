// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantFull string
		wantPath string
	}{
		{
			name:     "absolute URL with mixed case and trailing slash",
			raw:      "https://Example.com/Foo/",
			wantFull: "https://example.com/foo",
			wantPath: "/foo",
		},
		{
			name:     "bare path",
			raw:      "/foo",
			wantFull: "/foo",
			wantPath: "/foo",
		},
		{
			name:     "bare path with trailing slash",
			raw:      "/foo/",
			wantFull: "/foo",
			wantPath: "/foo",
		},
		{
			name:     "root URL",
			raw:      "https://example.com/",
			wantFull: "https://example.com/",
			wantPath: "/",
		},
		{
			name:     "root path",
			raw:      "/",
			wantFull: "/",
			wantPath: "/",
		},
		{
			name:     "empty input",
			raw:      "",
			wantFull: "/",
			wantPath: "/",
		},
		{
			name:     "nested path keeps inner slashes",
			raw:      "https://example.com/nieuws/artikel-1/",
			wantFull: "https://example.com/nieuws/artikel-1",
			wantPath: "/nieuws/artikel-1",
		},
		{
			name:     "upper case host only",
			raw:      "HTTPS://EXAMPLE.COM/Kennisbank",
			wantFull: "https://example.com/kennisbank",
			wantPath: "/kennisbank",
		},
		{
			name:     "path without leading slash",
			raw:      "foo/bar",
			wantFull: "/foo/bar",
			wantPath: "/foo/bar",
		},
		{
			name:     "surrounding whitespace",
			raw:      "  /foo  ",
			wantFull: "/foo",
			wantPath: "/foo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFull, gotPath := Canonicalize(tt.raw)
			if gotFull != tt.wantFull {
				t.Errorf("Canonicalize(%q) full = %q, want %q", tt.raw, gotFull, tt.wantFull)
			}
			if gotPath != tt.wantPath {
				t.Errorf("Canonicalize(%q) path = %q, want %q", tt.raw, gotPath, tt.wantPath)
			}
		})
	}
}

func TestCanonicalizeCollapsesURLAndPathVariants(t *testing.T) {
	// The search provider reports full URLs, the usage provider bare paths.
	// Both variants of the same page must collapse to the same path key.
	_, fromURL := Canonicalize("https://Example.com/Blog/Post-1/")
	_, fromPath := Canonicalize("/blog/post-1")
	if fromURL != fromPath {
		t.Errorf("path keys diverge: url variant %q, path variant %q", fromURL, fromPath)
	}
}
