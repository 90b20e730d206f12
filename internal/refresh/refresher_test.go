// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/cache"
	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/database"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// fakeFetcher implements supabase.SnapshotFetcher with scripted results.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	started chan struct{} // closed on first call when non-nil
	blockOn chan struct{} // fetch blocks until closed when non-nil
}

type fetchResult struct {
	snap *models.Snapshot
	err  error
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	started := f.started
	f.started = nil
	blockOn := f.blockOn
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if blockOn != nil {
		select {
		case <-blockOn:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if call < len(f.results) {
		r := f.results[call]
		return r.snap, r.err
	}
	return nil, fmt.Errorf("unexpected fetch call %d", call)
}

func (f *fakeFetcher) Ping(ctx context.Context) error { return nil }

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStore implements SnapshotStore in memory.
type fakeStore struct {
	mu      sync.Mutex
	saved   *models.Snapshot
	saveErr error
	loadErr error
}

func (s *fakeStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = snap
	return nil
}

func (s *fakeStore) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.saved == nil {
		return nil, database.ErrNoSnapshot
	}
	return s.saved, nil
}

func testRefreshConfig() *config.RefreshConfig {
	return &config.RefreshConfig{
		Interval:      time.Hour,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		OnStartup:     false,
	}
}

func snapshotAt(fetchedAt time.Time) *models.Snapshot {
	return &models.Snapshot{
		Companies: []models.Company{{ID: "co1", Name: "Bodas Aurora"}},
		FetchedAt: fetchedAt,
	}
}

func TestSnapshot_NoData(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeFetcher{}, &fakeStore{}, nil, testRefreshConfig())
	if _, err := m.Snapshot(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRefresh_SwapsAndPersists(t *testing.T) {
	t.Parallel()

	want := snapshotAt(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{results: []fetchResult{{snap: want}}}
	store := &fakeStore{}
	m := NewManager(fetcher, store, nil, testRefreshConfig())

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	got, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !got.FetchedAt.Equal(want.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, want.FetchedAt)
	}

	store.mu.Lock()
	saved := store.saved
	store.mu.Unlock()
	if saved == nil || !saved.FetchedAt.Equal(want.FetchedAt) {
		t.Errorf("snapshot not persisted: %+v", saved)
	}
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()

	first := snapshotAt(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	fetchErr := errors.New("backend down")
	fetcher := &fakeFetcher{results: []fetchResult{
		{snap: first},
		{err: fetchErr}, {err: fetchErr}, {err: fetchErr},
	}}
	m := NewManager(fetcher, &fakeStore{}, nil, testRefreshConfig())

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error: %v", err)
	}
	if err := m.Refresh(context.Background()); err == nil {
		t.Fatal("expected second Refresh() to fail")
	}

	got, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !got.FetchedAt.Equal(first.FetchedAt) {
		t.Errorf("stale snapshot should remain served, got %v", got.FetchedAt)
	}

	_, lastErr, hasData := m.Status()
	if lastErr == nil || !hasData {
		t.Errorf("Status() = (%v, %v), want recorded error with data", lastErr, hasData)
	}
}

func TestRefresh_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	want := snapshotAt(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: errors.New("timeout")},
		{err: errors.New("timeout")},
		{snap: want},
	}}
	m := NewManager(fetcher, &fakeStore{}, nil, testRefreshConfig())

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if fetcher.callCount() != 3 {
		t.Errorf("expected 3 fetch attempts, got %d", fetcher.callCount())
	}
}

func TestRefresh_RetriesExhausted(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("persistent failure")
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: fetchErr}, {err: fetchErr}, {err: fetchErr},
	}}
	m := NewManager(fetcher, &fakeStore{}, nil, testRefreshConfig())

	err := m.Refresh(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if fetcher.callCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", fetcher.callCount())
	}
}

func TestRefresh_PersistFailureStillServes(t *testing.T) {
	t.Parallel()

	want := snapshotAt(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{results: []fetchResult{{snap: want}}}
	store := &fakeStore{saveErr: errors.New("disk full")}
	m := NewManager(fetcher, store, nil, testRefreshConfig())

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() should succeed despite persist failure: %v", err)
	}
	if _, err := m.Snapshot(); err != nil {
		t.Errorf("Snapshot() error: %v", err)
	}
}

func TestRefresh_ClearsCache(t *testing.T) {
	t.Parallel()

	c := cache.New(time.Minute)
	c.Set("dashboard:abc", "stale")

	fetcher := &fakeFetcher{results: []fetchResult{
		{snap: snapshotAt(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))},
	}}
	m := NewManager(fetcher, &fakeStore{}, c, testRefreshConfig())

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if _, ok := c.Get("dashboard:abc"); ok {
		t.Error("cache should be cleared after a successful refresh")
	}
}

func TestTriggerRefresh_RejectsConcurrent(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		results: []fetchResult{{snap: snapshotAt(time.Now().UTC())}},
		started: started,
		blockOn: release,
	}
	m := NewManager(fetcher, &fakeStore{}, nil, testRefreshConfig())

	done := make(chan error, 1)
	go func() { done <- m.Refresh(context.Background()) }()

	<-started
	if err := m.TriggerRefresh(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Errorf("expected ErrRefreshInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("background Refresh() error: %v", err)
	}
}

func TestStart_ServesPersistedSnapshot(t *testing.T) {
	t.Parallel()

	persisted := snapshotAt(time.Date(2024, 6, 14, 8, 0, 0, 0, time.UTC))
	store := &fakeStore{saved: persisted}
	m := NewManager(&fakeFetcher{}, store, nil, testRefreshConfig())

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer func() {
		if err := m.Stop(); err != nil {
			t.Errorf("Stop() error: %v", err)
		}
	}()

	got, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !got.FetchedAt.Equal(persisted.FetchedAt) {
		t.Errorf("FetchedAt = %v, want persisted %v", got.FetchedAt, persisted.FetchedAt)
	}
}

func TestStart_OnStartupFetches(t *testing.T) {
	t.Parallel()

	want := snapshotAt(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
	fetcher := &fakeFetcher{results: []fetchResult{{snap: want}}}
	cfg := testRefreshConfig()
	cfg.OnStartup = true
	m := NewManager(fetcher, &fakeStore{}, nil, cfg)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	// Stop waits for the initial fetch goroutine, so the result is visible.
	got, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !got.FetchedAt.Equal(want.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, want.FetchedAt)
	}
}

func TestStartStop_Restartable(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeFetcher{}, &fakeStore{}, nil, testRefreshConfig())

	for cycle := 0; cycle < 2; cycle++ {
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("cycle %d: Start() error: %v", cycle, err)
		}
		if err := m.Stop(); err != nil {
			t.Fatalf("cycle %d: Stop() error: %v", cycle, err)
		}
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeFetcher{}, &fakeStore{}, nil, testRefreshConfig())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer func() { _ = m.Stop() }()

	if err := m.Start(context.Background()); err == nil {
		t.Error("expected error starting twice")
	}
}
