// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"short", "abc123", "***"},
		{"boundary", "123456789012", "***"},
		{"long", "eyJhbGciOiJIUzI1NiJ9", "eyJh...NiJ9"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeUsername(t *testing.T) {
	t.Parallel()

	if got := SanitizeUsername("admin"); got != "ad***" {
		t.Errorf("got %q, want ad***", got)
	}
	if got := SanitizeUsername("ab"); got != "***" {
		t.Errorf("got %q, want ***", got)
	}
	if got := SanitizeUsername(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError("invalid password for user"); got != "authentication error" {
		t.Errorf("credential-bearing error not masked: %q", got)
	}
	if got := SanitizeError("connection refused"); got != "connection refused" {
		t.Errorf("benign error mangled: %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := SanitizeError(long); len(got) != 203 {
		t.Errorf("long error not truncated: %d bytes", len(got))
	}
}

func TestSecurityLogger_LoginEvents(t *testing.T) {
	var buf bytes.Buffer

	l := NewSecurityLoggerWithLogger(NewTestLogger(&buf))
	l.LogLoginFailure("admin", "10.0.0.1", "curl/8.0", "wrong credentials")

	output := buf.String()
	if !strings.Contains(output, `"event":"login_failed"`) {
		t.Errorf("missing event: %s", output)
	}
	if !strings.Contains(output, `"username":"ad***"`) {
		t.Errorf("username not sanitized: %s", output)
	}
	if strings.Contains(output, "admin\"") {
		t.Errorf("raw username leaked: %s", output)
	}
	if !strings.Contains(output, `"status":"failed"`) {
		t.Errorf("missing status: %s", output)
	}

	buf.Reset()
	l.LogLoginSuccess("admin", "10.0.0.1", "curl/8.0")
	if !strings.Contains(buf.String(), `"status":"success"`) {
		t.Errorf("missing success status: %s", buf.String())
	}
}

func TestSecurityLogger_TokenRejected(t *testing.T) {
	var buf bytes.Buffer

	l := NewSecurityLoggerWithLogger(NewTestLogger(&buf))
	l.LogTokenRejected("10.0.0.1", "/api/v1/analytics/dashboard", "expired")

	output := buf.String()
	if !strings.Contains(output, `"event":"token_rejected"`) {
		t.Errorf("missing event: %s", output)
	}
	if !strings.Contains(output, "/api/v1/analytics/dashboard") {
		t.Errorf("missing path: %s", output)
	}
}
