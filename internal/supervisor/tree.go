// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package supervisor builds the suture supervision tree that keeps the
// long-running services (snapshot refresher, HTTP server) alive with
// backoff-based restarts.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/konfetti-app/konfetti-analytics/internal/logging"
)

// TreeConfig tunes restart behavior for every supervisor in the tree.
type TreeConfig struct {
	// FailureThreshold is the number of failures tolerated before backoff.
	FailureThreshold float64

	// FailureDecay is the seconds over which failures decay.
	FailureDecay float64

	// FailureBackoff is how long the supervisor waits once the threshold
	// is exceeded.
	FailureBackoff time.Duration

	// Timeout bounds how long a service may take to terminate.
	Timeout time.Duration
}

// DefaultTreeConfig returns the restart tuning used in production.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	}
}

// SupervisorTree is the root supervisor plus one child supervisor per
// layer. The data layer owns the snapshot refresher; the API layer owns
// the HTTP server.
type SupervisorTree struct {
	root *suture.Supervisor
	data *suture.Supervisor
	api  *suture.Supervisor
}

// NewSupervisorTree constructs the tree and attaches the child layers.
func NewSupervisorTree(cfg TreeConfig) *SupervisorTree {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.Timeout,
	}
	childSpec := rootSpec

	tree := &SupervisorTree{
		root: suture.New("konfetti-analytics", rootSpec),
		data: suture.New("data-layer", childSpec),
		api:  suture.New("api-layer", childSpec),
	}

	tree.root.Add(tree.data)
	tree.root.Add(tree.api)

	return tree
}

// AddDataService registers a service under the data-layer supervisor.
func (t *SupervisorTree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddAPIService registers a service under the api-layer supervisor.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a goroutine and returns the error
// channel that reports the tree's exit.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that failed to stop during
// shutdown.
func (t *SupervisorTree) UnstoppedServiceReport() (suture.UnstoppedServiceReport, error) {
	return t.root.UnstoppedServiceReport()
}
