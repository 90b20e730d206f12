// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package models

import "time"

// APIResponse is the envelope used by every HTTP endpoint.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"total_revenue": 125000},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z", "cached": true}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "Invalid date range"},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields. SnapshotAt is the
// fetch time of the snapshot the response was computed from, so clients can
// show data freshness.
type Metadata struct {
	Timestamp   time.Time  `json:"timestamp"`
	QueryTimeMS int64      `json:"query_time_ms,omitempty"`
	Cached      bool       `json:"cached,omitempty"`
	SnapshotAt  *time.Time `json:"snapshot_at,omitempty"`
}

// APIError is a structured error payload.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Machine-readable error codes used in APIError.Code.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeNoData         = "NO_DATA"
	ErrCodeRefreshBusy    = "REFRESH_IN_PROGRESS"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// LoginRequest is the JSON body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}
