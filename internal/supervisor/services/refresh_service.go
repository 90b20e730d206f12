// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package services

import (
	"context"

	"github.com/konfetti-app/konfetti-analytics/internal/logging"
)

// StartStopManager is the lifecycle shape shared by background managers
// such as the snapshot refresher.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// ManagerService adapts a StartStopManager to suture.Service.
type ManagerService struct {
	name    string
	manager StartStopManager
}

// NewManagerService wraps manager under the given service name.
func NewManagerService(name string, manager StartStopManager) *ManagerService {
	return &ManagerService{
		name:    name,
		manager: manager,
	}
}

// Serve implements suture.Service: start the manager, wait for
// cancellation, then stop it.
func (s *ManagerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		logging.Error().Err(err).Str("service", s.name).Msg("Manager stop failed")
		return err
	}

	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *ManagerService) String() string {
	return s.name
}
