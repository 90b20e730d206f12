// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// totalRevenueByCompany sums realized revenue per company: only events with
// payment_status == paid and a non-nil, non-zero price count. Companies with
// zero qualifying revenue are excluded from the map entirely rather than
// stored as zero; the "active company" KPI is the size of this map.
func totalRevenueByCompany(eventsByCompany map[string][]models.Event) map[string]float64 {
	revenue := make(map[string]float64)
	for companyID, events := range eventsByCompany {
		for _, ev := range events {
			if ev.HasPaidRevenue() {
				revenue[companyID] += *ev.Price
			}
		}
	}
	for companyID, total := range revenue {
		if total == 0 {
			delete(revenue, companyID)
		}
	}
	return revenue
}

// revenueInWindow sums the given companies' realized revenue for events
// dated within [start, end], inclusive on both ends. Undated events never
// match a window.
func revenueInWindow(eventsByCompany map[string][]models.Event, companyIDs []string, start, end time.Time) float64 {
	var total float64
	for _, companyID := range companyIDs {
		for _, ev := range eventsByCompany[companyID] {
			if !ev.HasPaidRevenue() || ev.Date == nil {
				continue
			}
			if ev.Date.Before(start) || ev.Date.After(end) {
				continue
			}
			total += *ev.Price
		}
	}
	return total
}

// pendingRevenue sums prices of partial and pending events. This feeds a
// display-only KPI; it never enters the cohort engine or NRR.
func pendingRevenue(events []models.Event) float64 {
	var total float64
	for _, ev := range events {
		if ev.Price == nil || *ev.Price == 0 {
			continue
		}
		if ev.PaymentStatus == models.PaymentPartial || ev.PaymentStatus == models.PaymentPending {
			total += *ev.Price
		}
	}
	return total
}
