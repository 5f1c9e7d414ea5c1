// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package sync

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		spanDays int
		want     [][2]string
	}{
		{
			name:     "40 days in 15-day windows",
			start:    "2026-01-01",
			end:      "2026-02-09",
			spanDays: 15,
			want: [][2]string{
				{"2026-01-01", "2026-01-15"},
				{"2026-01-16", "2026-01-30"},
				{"2026-01-31", "2026-02-09"},
			},
		},
		{
			name:     "range shorter than span",
			start:    "2026-01-01",
			end:      "2026-01-05",
			spanDays: 15,
			want:     [][2]string{{"2026-01-01", "2026-01-05"}},
		},
		{
			name:     "single day",
			start:    "2026-01-01",
			end:      "2026-01-01",
			spanDays: 15,
			want:     [][2]string{{"2026-01-01", "2026-01-01"}},
		},
		{
			name:     "exact multiple of span",
			start:    "2026-01-01",
			end:      "2026-01-30",
			spanDays: 15,
			want: [][2]string{
				{"2026-01-01", "2026-01-15"},
				{"2026-01-16", "2026-01-30"},
			},
		},
		{
			name:     "end before start",
			start:    "2026-01-10",
			end:      "2026-01-01",
			spanDays: 15,
			want:     nil,
		},
		{
			name:     "zero span",
			start:    "2026-01-01",
			end:      "2026-01-10",
			spanDays: 0,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitWindows(day(tt.start), day(tt.end), tt.spanDays)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d windows, want %d", len(got), len(tt.want))
			}
			for i, w := range got {
				if s := w.start.Format(dateLayout); s != tt.want[i][0] {
					t.Errorf("window %d start = %s, want %s", i, s, tt.want[i][0])
				}
				if e := w.end.Format(dateLayout); e != tt.want[i][1] {
					t.Errorf("window %d end = %s, want %s", i, e, tt.want[i][1])
				}
			}
		})
	}
}

func TestSplitWindowsNoGapsNoOverlap(t *testing.T) {
	windows := splitWindows(day("2026-01-01"), day("2026-03-15"), 15)
	if len(windows) == 0 {
		t.Fatal("expected windows")
	}
	if !windows[0].start.Equal(day("2026-01-01")) {
		t.Errorf("first window starts %s, want 2026-01-01", windows[0].start.Format(dateLayout))
	}
	if !windows[len(windows)-1].end.Equal(day("2026-03-15")) {
		t.Errorf("last window ends %s, want 2026-03-15", windows[len(windows)-1].end.Format(dateLayout))
	}
	for i := 1; i < len(windows); i++ {
		wantStart := windows[i-1].end.AddDate(0, 0, 1)
		if !windows[i].start.Equal(wantStart) {
			t.Errorf("window %d starts %s, want %s (day after previous end)",
				i, windows[i].start.Format(dateLayout), wantStart.Format(dateLayout))
		}
	}
}
