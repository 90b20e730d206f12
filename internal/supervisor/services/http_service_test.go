// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	t.Parallel()

	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(ctx)
	}()

	// Give the listener a moment to come up before canceling.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	t.Parallel()

	server := &http.Server{
		Addr:              "127.0.0.1:-1",
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, time.Second)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Serve(context.Background())
	}()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Serve() = nil, want listen error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return on listen error")
	}
}

func TestHTTPServerService_String(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(&http.Server{ReadHeaderTimeout: time.Second}, time.Second)
	if got := svc.String(); got != "http-server" {
		t.Fatalf("String() = %q, want %q", got, "http-server")
	}
}
