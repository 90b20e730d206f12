// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// Per-tier rate limits. Data endpoints use the configured limit; the tiers
// below are fixed because their traffic patterns do not vary by deployment.
const (
	healthRateLimit  = 1000 // monitoring probes hit health endpoints often
	loginRateLimit   = 5    // brute-force protection
	loginRateWindow  = 5 * time.Minute
	healthRateWindow = time.Minute
)

// ChiMiddleware builds the router's middleware from the security config.
type ChiMiddleware struct {
	cfg  *config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory.
func NewChiMiddleware(cfg *config.SecurityConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return &ChiMiddleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the go-chi/cors handler. It must be installed globally so
// OPTIONS preflight requests are answered on every route.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits data endpoints per client IP using the configured
// request budget.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}
	return httprate.Limit(
		m.cfg.RateLimitReqs,
		m.cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
}

// RateLimitLogin applies the strict login budget.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}
	return httprate.Limit(
		loginRateLimit,
		loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
}

// RateLimitHealth applies the permissive health budget.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return passthrough
	}
	return httprate.Limit(
		healthRateLimit,
		healthRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	)
}

func passthrough(next http.Handler) http.Handler { return next }

func rateLimited(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusTooManyRequests, models.ErrCodeRateLimit,
		"Too many requests, slow down", nil)
}

// RequestIDWithLogging assigns each request an ID, stores it in the logging
// context and echoes it in the X-Request-ID response header.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecurityHeaders sets conservative defaults for a JSON-only API.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}
