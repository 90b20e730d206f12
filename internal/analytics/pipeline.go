// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// Pipeline runs the full dashboard computation. It carries no state beyond
// the clock, which is injectable so tests can pin "now" for the NRR windows
// and cohort month cap.
type Pipeline struct {
	now func() time.Time
}

// NewPipeline creates a pipeline using the real clock.
func NewPipeline() *Pipeline {
	return &Pipeline{now: time.Now}
}

// NewPipelineWithClock creates a pipeline with an explicit clock, for tests
// and reproducible recomputation.
func NewPipelineWithClock(now func() time.Time) *Pipeline {
	return &Pipeline{now: now}
}

// Compute runs all eight pipeline steps in dependency order over one
// snapshot and returns the complete dashboard output. It is pure: no I/O,
// no mutation of the snapshot, deterministic given identical input and
// clock.
func (p *Pipeline) Compute(snap *models.Snapshot) *models.DashboardAnalytics {
	now := p.now().UTC()

	contactIdx := indexContacts(snap.Contacts)
	companyNames := indexCompanies(snap.Companies)
	eventsByCompany := groupEventsByCompany(snap.Events, contactIdx)
	onboarding := onboardingMonths(snap.Contacts)
	revenueByCompany := totalRevenueByCompany(eventsByCompany)

	var totalRevenue float64
	for _, revenue := range revenueByCompany {
		totalRevenue += revenue
	}

	return &models.DashboardAnalytics{
		KPIs: models.KPIs{
			ActiveCompanies: len(revenueByCompany),
			TotalRevenue:    totalRevenue,
			PendingRevenue:  pendingRevenue(snap.Events),
			NRR:             calculateNRR(now, eventsByCompany, onboarding),
			Concentration:   topConcentration(revenueByCompany, companyNames, totalRevenue),
		},
		Cohorts:          buildCohortTable(now, eventsByCompany, onboarding, revenueByCompany),
		Pareto:           buildParetoSeries(revenueByCompany, companyNames, totalRevenue),
		DependencyAlerts: dependencyAlerts(revenueByCompany, companyNames, totalRevenue),
		ComputedAt:       now,
		SnapshotAt:       snap.FetchedAt,
	}
}

// RevenueInWindow answers the ad-hoc revenue query: realized revenue across
// all companies for events dated within [start, end], inclusive on both
// ends.
func (p *Pipeline) RevenueInWindow(snap *models.Snapshot, start, end time.Time) float64 {
	contactIdx := indexContacts(snap.Contacts)
	eventsByCompany := groupEventsByCompany(snap.Events, contactIdx)

	companyIDs := make([]string, 0, len(eventsByCompany))
	for companyID := range eventsByCompany {
		companyIDs = append(companyIDs, companyID)
	}
	return revenueInWindow(eventsByCompany, companyIDs, start, end)
}
