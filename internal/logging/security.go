// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an auth-relevant event for the audit log.
type SecurityEvent struct {
	// Event is the event type, e.g. "login_success" or "login_failed".
	Event string
	// Username is the attempted username (sanitized before emission).
	Username string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Success indicates if the operation succeeded.
	Success bool
	// Error is the failure reason (sanitized before emission).
	Error string
}

// SecurityLogger emits audit events for authentication. Usernames, tokens
// and error text are sanitized before they reach the log stream.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("auth")}
}

// NewSecurityLoggerWithLogger creates a security logger on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LogEvent logs one audit event with automatic sanitization.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info().Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}
	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}

	e.Msg("")
}

// LogLoginSuccess logs a successful login.
func (l *SecurityLogger) LogLoginSuccess(username, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_success",
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure logs a failed login attempt.
func (l *SecurityLogger) LogLoginFailure(username, ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_failed",
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   false,
		Error:     reason,
	})
}

// LogTokenRejected logs a request carrying an invalid bearer token.
func (l *SecurityLogger) LogTokenRejected(ip, path, reason string) {
	l.logger.Info().
		Str("event", "token_rejected").
		Str("status", "failed").
		Str("ip", ip).
		Str("path", path).
		Str("error", SanitizeError(reason)).
		Msg("")
}

// SanitizeToken masks a token, keeping the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername masks a username, keeping the first 2 characters.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeError replaces error text that might carry credential material
// with a generic message, and truncates the rest.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"key",
		"bearer",
		"authorization",
		"cookie",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// truncateString truncates a string to a maximum byte length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
