// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package services adapts the application's long-running components to the
// suture.Service interface.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/logging"
)

// HTTPServerService runs an *http.Server under supervision. A listener
// error restarts the service; context cancellation shuts it down
// gracefully.
type HTTPServerService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps the given server. shutdownTimeout bounds
// graceful shutdown once the context is canceled.
func NewHTTPServerService(server *http.Server, shutdownTimeout time.Duration) *HTTPServerService {
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("HTTP server shutdown failed")
			return err
		}

		logging.Info().Msg("HTTP server stopped")
		return ctx.Err()

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String names the service in supervisor logs.
func (s *HTTPServerService) String() string {
	return "http-server"
}
