// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/brikx/sitepulse/internal/models"
)

func TestPublishSyncReport(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close() //nolint:errcheck // test cleanup

	msgs, err := pubsub.Subscribe(context.Background(), "sitepulse.sync.completed")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	p := &Publisher{publisher: pubsub, topic: "sitepulse.sync.completed"}

	report := &models.SyncReport{
		StartedAt:  time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 4, 2, 0, 0, time.UTC),
		Results: []models.SyncRunResult{
			{WorkspaceID: "ws-1", Domain: "example.com", SearchFetched: 10, SearchMatched: 8},
			{WorkspaceID: "ws-2", Domain: "other.example", Errors: []string{"usage: boom"}},
		},
	}
	if err := p.PublishSyncReport(context.Background(), report); err != nil {
		t.Fatalf("PublishSyncReport: %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()

		var got models.SyncReport
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("payload does not decode: %v", err)
		}
		if len(got.Results) != 2 {
			t.Errorf("results = %d, want 2", len(got.Results))
		}
		if msg.Metadata.Get("workspaces") != "2" {
			t.Errorf("workspaces metadata = %q, want 2", msg.Metadata.Get("workspaces"))
		}
		if msg.Metadata.Get("errors") != "1" {
			t.Errorf("errors metadata = %q, want 1", msg.Metadata.Get("errors"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPublishAfterClose(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	p := &Publisher{publisher: pubsub, topic: "sitepulse.sync.completed"}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := p.PublishSyncReport(context.Background(), &models.SyncReport{}); err == nil {
		t.Error("expected error publishing after close")
	}
}
