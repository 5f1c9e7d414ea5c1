// Sitepulse - SEO and Content Analytics Dashboard
// Copyright 2026 Brikx
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/brikx/sitepulse

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeSyncRunner is a test double for the SyncRunner interface.
type fakeSyncRunner struct {
	startErr   error
	stopErr    error
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (f *fakeSyncRunner) Start(_ context.Context) error {
	f.startCount.Add(1)
	return f.startErr
}

func (f *fakeSyncRunner) Stop() error {
	f.stopCount.Add(1)
	return f.stopErr
}

func TestSyncServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*SyncService)(nil)
}

func TestSyncServiceLifecycle(t *testing.T) {
	runner := &fakeSyncRunner{}
	svc := NewSyncService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	// Give Serve time to call Start and block on the context.
	deadline := time.Now().Add(time.Second)
	for runner.startCount.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runner.startCount.Load() != 1 {
		t.Fatalf("Start called %d times, want 1", runner.startCount.Load())
	}

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if runner.stopCount.Load() != 1 {
		t.Errorf("Stop called %d times, want 1", runner.stopCount.Load())
	}
}

func TestSyncServiceStartFailure(t *testing.T) {
	startErr := errors.New("database unreachable")
	runner := &fakeSyncRunner{startErr: startErr}
	svc := NewSyncService(runner)

	err := svc.Serve(context.Background())
	if !errors.Is(err, startErr) {
		t.Errorf("Serve returned %v, want wrapped start error", err)
	}
	if runner.stopCount.Load() != 0 {
		t.Error("Stop should not be called when Start fails")
	}
}

func TestSyncServiceStopFailure(t *testing.T) {
	stopErr := errors.New("flush failed")
	runner := &fakeSyncRunner{stopErr: stopErr}
	svc := NewSyncService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, stopErr) {
		t.Errorf("Serve returned %v, want wrapped stop error", err)
	}
}

func TestSyncServiceString(t *testing.T) {
	svc := NewSyncService(&fakeSyncRunner{})
	if svc.String() != "sync-manager" {
		t.Errorf("String() = %q, want sync-manager", svc.String())
	}
}
