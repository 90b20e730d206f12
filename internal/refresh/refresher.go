// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package refresh keeps the in-memory snapshot current. A background loop
// fetches from Supabase on a fixed interval, persists each successful fetch
// to the DuckDB store, and swaps the served snapshot atomically. Analytics
// requests never wait on a fetch.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/cache"
	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/database"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
	"github.com/konfetti-app/konfetti-analytics/internal/metrics"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
	"github.com/konfetti-app/konfetti-analytics/internal/supabase"
)

// ErrNoData is returned by Snapshot when neither a fetch nor the persisted
// store has produced data yet.
var ErrNoData = errors.New("no snapshot available yet")

// ErrRefreshInProgress is returned by TriggerRefresh when a refresh is
// already running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// SnapshotStore is the persistence surface the refresher needs.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// Manager owns the refresh loop and the currently served snapshot.
type Manager struct {
	fetcher supabase.SnapshotFetcher
	store   SnapshotStore
	cache   *cache.Cache
	cfg     *config.RefreshConfig

	mu       sync.RWMutex
	current  *models.Snapshot
	lastErr  error
	lastRun  time.Time
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	// refreshMu serializes refreshes so the ticker and manual triggers
	// never fetch concurrently.
	refreshMu sync.Mutex
}

// NewManager creates a refresh manager. The cache may be nil when response
// memoization is disabled.
func NewManager(fetcher supabase.SnapshotFetcher, store SnapshotStore, c *cache.Cache, cfg *config.RefreshConfig) *Manager {
	return &Manager{
		fetcher:  fetcher,
		store:    store,
		cache:    c,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start loads the persisted snapshot for warm startup, optionally performs
// an immediate fetch, and begins the periodic refresh loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("refresh manager is already running")
	}
	m.running = true
	// Stop closed the previous channel; a fresh one makes restart safe.
	stopChan := make(chan struct{})
	m.stopChan = stopChan
	m.mu.Unlock()

	m.loadPersisted(ctx)

	if m.cfg.OnStartup {
		// Initial fetch runs in the background so server startup is not
		// blocked by a slow or unavailable backend.
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("Initial snapshot refresh failed (loop will retry)")
			}
		}()
	}

	m.wg.Add(1)
	go m.refreshLoop(ctx, stopChan)

	logging.Info().
		Dur("interval", m.cfg.Interval).
		Bool("on_startup", m.cfg.OnStartup).
		Msg("Refresh manager started")
	return nil
}

// Stop halts the refresh loop and waits for in-flight work to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("refresh manager is not running")
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()

	logging.Info().Msg("Refresh manager stopped")
	return nil
}

// Snapshot returns the currently served snapshot. Callers must treat the
// result as read-only.
func (m *Manager) Snapshot() (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNoData
	}
	return m.current, nil
}

// Status reports the last refresh outcome for health endpoints.
func (m *Manager) Status() (lastRun time.Time, lastErr error, hasData bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun, m.lastErr, m.current != nil
}

// TriggerRefresh runs a refresh immediately, returning ErrRefreshInProgress
// when one is already underway.
func (m *Manager) TriggerRefresh(ctx context.Context) error {
	if !m.refreshMu.TryLock() {
		return ErrRefreshInProgress
	}
	defer m.refreshMu.Unlock()
	return m.refreshOnce(ctx)
}

// Refresh runs a refresh, waiting for any in-flight refresh to finish first.
func (m *Manager) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.refreshOnce(ctx)
}

func (m *Manager) refreshLoop(ctx context.Context, stopChan <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopChan:
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				logging.Error().Err(err).Msg("Snapshot refresh failed")
			}
		}
	}
}

// refreshOnce fetches with retry, persists, and swaps the served snapshot.
// Callers must hold refreshMu.
func (m *Manager) refreshOnce(ctx context.Context) error {
	start := time.Now()

	snap, err := m.fetchWithRetry(ctx)
	metrics.RecordRefresh(time.Since(start), err)

	m.mu.Lock()
	m.lastRun = time.Now()
	m.lastErr = err
	m.mu.Unlock()

	if err != nil {
		return err
	}

	if m.store != nil {
		// Persistence failures are logged but do not fail the refresh:
		// the fetched snapshot is still valid to serve.
		if saveErr := m.store.SaveSnapshot(ctx, snap); saveErr != nil {
			logging.Error().Err(saveErr).Msg("Failed to persist snapshot")
		}
	}

	m.mu.Lock()
	m.current = snap
	m.mu.Unlock()

	if m.cache != nil {
		m.cache.Clear()
	}

	metrics.UpdateSnapshotAge(snap.FetchedAt)
	metrics.UpdateSnapshotRecords(len(snap.Events), len(snap.Contacts), len(snap.Companies))

	logging.Info().
		Int("events", len(snap.Events)).
		Int("contacts", len(snap.Contacts)).
		Int("companies", len(snap.Companies)).
		Dur("duration", time.Since(start)).
		Msg("Snapshot refreshed")
	return nil
}

// fetchWithRetry executes the fetch with exponential backoff. The context is
// checked before each attempt and during backoff waits.
func (m *Manager) fetchWithRetry(ctx context.Context) (*models.Snapshot, error) {
	var lastErr error
	delay := m.cfg.RetryDelay

	attempts := m.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		snap, err := m.fetcher.FetchSnapshot(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			logging.Warn().Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", attempts).
				Dur("delay", delay).
				Msg("Snapshot fetch retry")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}
	}

	return nil, fmt.Errorf("max retry attempts reached: %w", lastErr)
}

// loadPersisted seeds the served snapshot from the store so a restart can
// answer requests before the first fetch completes.
func (m *Manager) loadPersisted(ctx context.Context) {
	if m.store == nil {
		return
	}

	snap, err := m.store.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNoSnapshot) {
			logging.Info().Msg("No persisted snapshot, waiting for first fetch")
		} else {
			logging.Warn().Err(err).Msg("Failed to load persisted snapshot")
		}
		return
	}

	m.mu.Lock()
	m.current = snap
	m.mu.Unlock()

	metrics.UpdateSnapshotAge(snap.FetchedAt)
	metrics.UpdateSnapshotRecords(len(snap.Events), len(snap.Contacts), len(snap.Companies))

	logging.Info().
		Time("fetched_at", snap.FetchedAt).
		Int("events", len(snap.Events)).
		Msg("Serving persisted snapshot until next refresh")
}
