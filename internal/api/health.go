// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status        string     `json:"status"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	SnapshotAt    *time.Time `json:"snapshot_at,omitempty"`
	SnapshotAge   *int64     `json:"snapshot_age_seconds,omitempty"`
	LastRefresh   *time.Time `json:"last_refresh,omitempty"`
	RefreshError  string     `json:"refresh_error,omitempty"`
}

// Health reports service status and snapshot freshness. Degraded means the
// service is up but has no data to serve yet.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lastRun, lastErr, hasData := h.provider.Status()

	status := HealthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if !hasData {
		status.Status = "degraded"
	}
	if !lastRun.IsZero() {
		t := lastRun.UTC()
		status.LastRefresh = &t
	}
	if lastErr != nil {
		status.RefreshError = lastErr.Error()
	}
	if snap, err := h.provider.Snapshot(); err == nil {
		fetchedAt := snap.FetchedAt
		age := int64(time.Since(fetchedAt).Seconds())
		status.SnapshotAt = &fetchedAt
		status.SnapshotAge = &age
	}

	respondSuccess(w, status, time.Time{}, start, false)
}

// HealthLive is the liveness probe: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, map[string]string{"status": "alive"}, time.Time{}, time.Now(), false)
}

// HealthReady is the readiness probe: 200 once a snapshot is available,
// 503 before that so load balancers hold traffic during cold start.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	_, _, hasData := h.provider.Status()
	if !hasData {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
		return
	}
	respondSuccess(w, map[string]string{"status": "ready"}, time.Time{}, time.Now(), false)
}
