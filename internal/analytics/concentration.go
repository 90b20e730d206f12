// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"sort"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// Concentration severity thresholds: a single company above half of total
// revenue is a critical dependency, above 30% is a warning.
const (
	concentrationRedPct   = 50.0
	concentrationAmberPct = 30.0
)

// severityFor classifies a revenue share percentage.
func severityFor(pct float64) models.Severity {
	switch {
	case pct > concentrationRedPct:
		return models.SeverityRed
	case pct > concentrationAmberPct:
		return models.SeverityAmber
	default:
		return models.SeverityGreen
	}
}

// topConcentration finds the single largest revenue contributor and its
// share of total revenue. With no revenue at all it returns the degenerate
// "—" / 0% / green result instead of dividing by zero. Ties on revenue
// resolve to the lexicographically smaller company name so the result is
// deterministic across map iteration orders.
func topConcentration(revenueByCompany map[string]float64, companyNames map[string]string, totalRevenue float64) models.ConcentrationResult {
	if totalRevenue <= 0 || len(revenueByCompany) == 0 {
		return models.ConcentrationResult{
			CompanyName: "—",
			Level:       models.SeverityGreen,
		}
	}

	var topID string
	var topRevenue float64
	for companyID, revenue := range revenueByCompany {
		if revenue > topRevenue ||
			(revenue == topRevenue && topID != "" && companyNames[companyID] < companyNames[topID]) {
			topID = companyID
			topRevenue = revenue
		}
	}

	pct := topRevenue / totalRevenue * 100
	return models.ConcentrationResult{
		CompanyName: companyNames[topID],
		Revenue:     topRevenue,
		Pct:         pct,
		Level:       severityFor(pct),
	}
}

// dependencyAlerts applies the concentration thresholds to every company,
// not just the largest: any company whose share exceeds the amber threshold
// is surfaced, so several simultaneous risk concentrations are all visible.
// Alerts are sorted by share descending, name ascending on ties.
func dependencyAlerts(revenueByCompany map[string]float64, companyNames map[string]string, totalRevenue float64) []models.DependencyAlert {
	alerts := []models.DependencyAlert{}
	if totalRevenue <= 0 {
		return alerts
	}

	for companyID, revenue := range revenueByCompany {
		pct := revenue / totalRevenue * 100
		if pct <= concentrationAmberPct {
			continue
		}
		alerts = append(alerts, models.DependencyAlert{
			CompanyName: companyNames[companyID],
			Pct:         pct,
			Level:       severityFor(pct),
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Pct != alerts[j].Pct {
			return alerts[i].Pct > alerts[j].Pct
		}
		return alerts[i].CompanyName < alerts[j].CompanyName
	})
	return alerts
}
