// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package services

import (
	"context"
	"fmt"
)

// SyncRunner matches the sync manager's Start/Stop lifecycle.
type SyncRunner interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService runs the sync manager under supervision. Start spawns the
// manager's scheduler goroutine and returns; Serve then blocks until the
// context is canceled and Stop waits for in-flight runs to finish.
type SyncService struct {
	manager SyncRunner
}

// NewSyncService wraps manager as a supervised service.
func NewSyncService(manager SyncRunner) *SyncService {
	return &SyncService{manager: manager}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service with backoff.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *SyncService) String() string {
	return "sync-manager"
}
