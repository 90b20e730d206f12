// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned request ID %q", got)
	}

	ctx = ContextWithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("request ID = %q, want req-123", got)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if id == "" {
			t.Fatal("empty request ID")
		}
		if seen[id] {
			t.Fatalf("duplicate request ID %s", id)
		}
		seen[id] = true
	}
}

func TestCtx_StampsRequestID(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-abc")

	Ctx(ctx).Info().Msg("handled")

	output := buf.String()
	if !strings.Contains(output, `"request_id":"req-abc"`) {
		t.Errorf("output missing request_id: %s", output)
	}
	if !strings.Contains(output, "handled") {
		t.Errorf("output missing message: %s", output)
	}
}

func TestCtx_FallsBackToGlobalLogger(t *testing.T) {
	t.Parallel()

	// Must not panic and must return a usable logger.
	logger := Ctx(context.Background())
	if logger == nil {
		t.Fatal("Ctx returned nil")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	logger := WithComponent("refresh")
	logger.Info().Msg("tick")

	if !strings.Contains(buf.String(), `"component":"refresh"`) {
		t.Errorf("output missing component: %s", buf.String())
	}
}
