// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/konfetti-app/konfetti-analytics/internal/auth"
	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/middleware"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler *Handler
	chiMW   *ChiMiddleware
	authMW  *auth.Middleware
}

// NewRouter creates a router from its middleware and handler parts.
func NewRouter(handler *Handler, cfg *config.SecurityConfig, authMW *auth.Middleware) *Router {
	return &Router{
		handler: handler,
		chiMW:   NewChiMiddleware(cfg),
		authMW:  authMW,
	}
}

// Setup builds the complete handler tree.
//
// Route tiers:
//   - /api/v1/health/*: no auth, permissive rate limit
//   - /api/v1/auth/login: no auth, strict rate limit
//   - /api/v1/analytics/*, /api/v1/refresh: bearer auth, configured limit
//   - /metrics: Prometheus scrape endpoint, no auth (bind it privately)
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.chiMW.CORS())
	r.Use(middleware.Compression())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/", rt.handler.Health)
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.With(rt.chiMW.RateLimitLogin()).Post("/login", rt.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.chiMW.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(rt.authMW.RequireAuth)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", rt.handler.Dashboard)
			r.Get("/kpis", rt.handler.KPIs)
			r.Get("/cohorts", rt.handler.Cohorts)
			r.Get("/pareto", rt.handler.Pareto)
			r.Get("/alerts", rt.handler.Alerts)
			r.Get("/revenue", rt.handler.Revenue)
		})

		r.Post("/refresh", rt.handler.Refresh)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
