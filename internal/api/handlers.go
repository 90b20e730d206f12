// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package api exposes the analytics pipeline over HTTP using the chi router.
// All data endpoints read the current in-memory snapshot; none of them talk
// to the backend directly.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/konfetti-app/konfetti-analytics/internal/analytics"
	"github.com/konfetti-app/konfetti-analytics/internal/auth"
	"github.com/konfetti-app/konfetti-analytics/internal/cache"
	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
	"github.com/konfetti-app/konfetti-analytics/internal/metrics"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
	"github.com/konfetti-app/konfetti-analytics/internal/refresh"
)

// SnapshotProvider supplies the currently served snapshot.
type SnapshotProvider interface {
	Snapshot() (*models.Snapshot, error)
	Status() (lastRun time.Time, lastErr error, hasData bool)
}

// RefreshTrigger runs an on-demand snapshot refresh.
type RefreshTrigger interface {
	TriggerRefresh(ctx context.Context) error
}

// RevenueWindowStore answers windowed revenue queries from the persisted
// snapshot, pushing the date filter into the database.
type RevenueWindowStore interface {
	PaidRevenueInWindow(ctx context.Context, start, end time.Time) (float64, error)
}

// Handler implements all HTTP endpoints.
type Handler struct {
	provider    SnapshotProvider
	refresher   RefreshTrigger
	pipeline    *analytics.Pipeline
	windowStore RevenueWindowStore
	cache       *cache.Cache
	cacheTTL    time.Duration
	jwt         *auth.JWTManager
	creds       *auth.CredentialManager
	secLog      *logging.SecurityLogger
	startedAt   time.Time
}

// NewHandler wires the handler's dependencies. jwt and creds may be nil in
// "none" auth mode, which disables the login endpoint. windowStore may be
// nil, in which case windowed revenue queries run against the in-memory
// snapshot.
func NewHandler(
	provider SnapshotProvider,
	refresher RefreshTrigger,
	pipeline *analytics.Pipeline,
	windowStore RevenueWindowStore,
	c *cache.Cache,
	cfg *config.APIConfig,
	jwtManager *auth.JWTManager,
	creds *auth.CredentialManager,
) *Handler {
	return &Handler{
		provider:    provider,
		refresher:   refresher,
		pipeline:    pipeline,
		windowStore: windowStore,
		cache:       c,
		cacheTTL:    cfg.CacheTTL,
		jwt:         jwtManager,
		creds:       creds,
		secLog:      logging.NewSecurityLogger(),
		startedAt:   time.Now(),
	}
}

// dashboard returns the computed analytics for the current snapshot,
// memoized on the snapshot's fetch time. A refresh clears the cache, so a
// stale entry can only be served for at most one cache TTL.
func (h *Handler) dashboard(snap *models.Snapshot) (*models.DashboardAnalytics, bool) {
	if h.cache == nil {
		return h.pipeline.Compute(snap), false
	}

	key := cache.GenerateKey("dashboard", snap.FetchedAt)
	if v, ok := h.cache.Get(key); ok {
		if result, ok := v.(*models.DashboardAnalytics); ok {
			return result, true
		}
	}

	computeStart := time.Now()
	result := h.pipeline.Compute(snap)
	metrics.PipelineComputeDuration.Observe(time.Since(computeStart).Seconds())

	h.cache.SetWithTTL(key, result, h.cacheTTL)
	return result, false
}

// snapshotOr503 fetches the current snapshot, writing a 503 when no data
// has been loaded yet.
func (h *Handler) snapshotOr503(w http.ResponseWriter) (*models.Snapshot, bool) {
	snap, err := h.provider.Snapshot()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeNoData,
			"No snapshot available yet; the first refresh has not completed", err)
		return nil, false
	}
	return snap, true
}

// Dashboard returns the full analytics payload: KPIs, cohort table, Pareto
// series and dependency alerts in one response.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.snapshotOr503(w)
	if !ok {
		return
	}

	result, cached := h.dashboard(snap)
	respondSuccess(w, result, snap.FetchedAt, start, cached)
}

// KPIs returns only the headline numbers.
func (h *Handler) KPIs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.snapshotOr503(w)
	if !ok {
		return
	}

	result, cached := h.dashboard(snap)
	respondSuccess(w, result.KPIs, snap.FetchedAt, start, cached)
}

// Cohorts returns the cohort retention table.
func (h *Handler) Cohorts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.snapshotOr503(w)
	if !ok {
		return
	}

	result, cached := h.dashboard(snap)
	respondSuccess(w, result.Cohorts, snap.FetchedAt, start, cached)
}

// paretoRequest carries the optional limit query parameter.
type paretoRequest struct {
	Limit string `validate:"omitempty,number"`
}

// Pareto returns the cumulative revenue concentration series. An optional
// limit query parameter truncates the series to the top N companies.
func (h *Handler) Pareto(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := paretoRequest{Limit: r.URL.Query().Get("limit")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	snap, ok := h.snapshotOr503(w)
	if !ok {
		return
	}

	result, cached := h.dashboard(snap)
	series := result.Pareto
	if req.Limit != "" {
		limit, err := strconv.Atoi(req.Limit)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
				"limit must be a positive integer", nil)
			return
		}
		if limit < len(series) {
			series = series[:limit]
		}
	}
	respondSuccess(w, series, snap.FetchedAt, start, cached)
}

// AlertsResponse groups the revenue-dependency warnings.
type AlertsResponse struct {
	Concentration models.ConcentrationResult `json:"concentration"`
	Alerts        []models.DependencyAlert   `json:"alerts"`
}

// Alerts returns the top-client concentration and all dependency alerts.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, ok := h.snapshotOr503(w)
	if !ok {
		return
	}

	result, cached := h.dashboard(snap)
	respondSuccess(w, AlertsResponse{
		Concentration: result.KPIs.Concentration,
		Alerts:        result.DependencyAlerts,
	}, snap.FetchedAt, start, cached)
}

// revenueWindowRequest carries the validated query parameters of the
// revenue endpoint.
type revenueWindowRequest struct {
	Start string `validate:"required,datetime=2006-01-02"`
	End   string `validate:"required,datetime=2006-01-02"`
}

// RevenueWindowResponse is the payload of the revenue endpoint.
type RevenueWindowResponse struct {
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Revenue float64 `json:"revenue"`
}

// Revenue returns the paid revenue of attributed companies inside an
// inclusive date window. Query parameters: start, end (YYYY-MM-DD).
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := revenueWindowRequest{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	from, _ := time.ParseInLocation("2006-01-02", req.Start, time.UTC)
	to, _ := time.ParseInLocation("2006-01-02", req.End, time.UTC)
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
			"end must not be before start", nil)
		return
	}

	snap, ok := h.snapshotOr503(w)
	if !ok {
		return
	}

	revenue := h.windowRevenue(r.Context(), snap, from, to)
	respondSuccess(w, RevenueWindowResponse{
		Start:   req.Start,
		End:     req.End,
		Revenue: revenue,
	}, snap.FetchedAt, start, false)
}

// windowRevenue prefers the store's date-filtered query and falls back to
// scanning the in-memory snapshot when no store is wired or the query
// fails. The refresher persists every successful fetch, so the two paths
// see the same data outside of persistence failures.
func (h *Handler) windowRevenue(ctx context.Context, snap *models.Snapshot, from, to time.Time) float64 {
	if h.windowStore != nil {
		revenue, err := h.windowStore.PaidRevenueInWindow(ctx, from, to)
		if err == nil {
			return revenue
		}
		logging.Warn().Err(err).Msg("Windowed revenue query failed, computing in memory")
	}
	return h.pipeline.RevenueInWindow(snap, from, to)
}

// Refresh triggers an immediate snapshot refresh. Returns 409 when a
// refresh is already running and 502 when the backend fetch fails.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	err := h.refresher.TriggerRefresh(r.Context())
	if err != nil {
		if errors.Is(err, refresh.ErrRefreshInProgress) {
			respondError(w, http.StatusConflict, models.ErrCodeRefreshBusy,
				"A refresh is already in progress", nil)
			return
		}
		respondError(w, http.StatusBadGateway, models.ErrCodeInternal,
			"Snapshot refresh failed", err)
		return
	}

	snap, snapErr := h.provider.Snapshot()
	var fetchedAt time.Time
	if snapErr == nil {
		fetchedAt = snap.FetchedAt
	}
	respondSuccess(w, map[string]string{"result": "refreshed"}, fetchedAt, start, false)
}

// Login authenticates the admin credential pair and issues a JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.jwt == nil || h.creds == nil {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound,
			"Authentication is disabled", nil)
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
			"Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	ip := clientIP(r)
	userAgent := r.UserAgent()

	if !h.creds.Verify(req.Username, req.Password) {
		h.secLog.LogLoginFailure(req.Username, ip, userAgent, "invalid credentials")
		respondError(w, http.StatusUnauthorized, models.ErrCodeAuthentication,
			"Invalid username or password", nil)
		return
	}

	token, err := h.jwt.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal,
			"Failed to issue token", err)
		return
	}

	h.secLog.LogLoginSuccess(req.Username, ip, userAgent)
	respondSuccess(w, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.jwt.SessionTimeout()).UTC(),
		Username:  req.Username,
		Role:      "admin",
	}, time.Time{}, time.Now(), false)
}
