// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

// Package events publishes sync completion reports to NATS so downstream
// consumers (dashboard cache invalidation, alerting) learn about fresh data
// without polling. Publishing is optional and best-effort: a run's outcome
// never depends on the event bus being reachable.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/brikx/sitepulse/internal/config"
	"github.com/brikx/sitepulse/internal/logging"
	"github.com/brikx/sitepulse/internal/models"
)

// Publisher sends sync reports to a NATS topic via Watermill.
type Publisher struct {
	publisher message.Publisher
	topic     string

	mu     sync.Mutex
	closed bool
}

// NewPublisher connects to NATS and creates the report publisher. The
// connection retries in the background; a NATS server that is down at
// startup does not fail process startup.
func NewPublisher(cfg *config.NATSConfig) (*Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream:   wmnats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	return &Publisher{publisher: pub, topic: cfg.Topic}, nil
}

// PublishSyncReport serializes and publishes one completed run's report.
func (p *Publisher) PublishSyncReport(_ context.Context, report *models.SyncReport) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.Unlock()

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize sync report: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), data)
	msg.Metadata.Set("workspaces", fmt.Sprintf("%d", len(report.Results)))
	msg.Metadata.Set("errors", fmt.Sprintf("%d", report.TotalErrors()))
	msg.Metadata.Set("finished_at", report.FinishedAt.UTC().Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish sync report: %w", err)
	}

	logging.Debug().
		Str("topic", p.topic).
		Int("workspaces", len(report.Results)).
		Msg("sync report published")
	return nil
}

// Close shuts the publisher down. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
