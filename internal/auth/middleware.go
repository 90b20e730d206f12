// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Middleware guards API routes with bearer-token authentication. In "none"
// mode every request passes through, which is intended for local development
// only; config validation forbids it in production.
type Middleware struct {
	jwt    *JWTManager
	mode   string
	secLog *logging.SecurityLogger
}

// NewMiddleware creates the auth middleware for the configured mode.
func NewMiddleware(jwtManager *JWTManager, cfg *config.SecurityConfig) *Middleware {
	return &Middleware{
		jwt:    jwtManager,
		mode:   cfg.AuthMode,
		secLog: logging.NewSecurityLogger(),
	}
}

// RequireAuth validates the Authorization bearer token and stores its
// claims in the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == config.AuthModeNone {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			m.secLog.LogTokenRejected(clientIP(r), r.URL.Path, "missing bearer token")
			writeUnauthorized(w, "Missing or malformed Authorization header")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			m.secLog.LogTokenRejected(clientIP(r), r.URL.Path, err.Error())
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the validated claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

// clientIP returns the request's remote IP without the port. The router
// installs chi's RealIP middleware first, so RemoteAddr already reflects
// X-Forwarded-For when a trusted proxy set it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	resp := models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    models.ErrCodeAuthentication,
			Message: message,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}
	_ = json.NewEncoder(w).Encode(resp)
}
