// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"sort"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// paretoLabelMaxLen is the chart-label length limit; longer company names
// are truncated with an ellipsis. Kept as a named constant for label
// compatibility with the dashboard charts.
const paretoLabelMaxLen = 15

// truncateLabel shortens a company name for chart display. Runes, not
// bytes, so multibyte names truncate cleanly.
func truncateLabel(name string) string {
	runes := []rune(name)
	if len(runes) <= paretoLabelMaxLen {
		return name
	}
	return string(runes[:paretoLabelMaxLen]) + "…"
}

// buildParetoSeries sorts companies by revenue descending and computes the
// running cumulative-revenue percentage. With revenue the final point
// reaches 100 (within float rounding); with zero total revenue every
// percentage is 0. Revenue ties sort by name ascending for determinism.
func buildParetoSeries(revenueByCompany map[string]float64, companyNames map[string]string, totalRevenue float64) []models.ParetoPoint {
	points := make([]models.ParetoPoint, 0, len(revenueByCompany))
	for companyID, revenue := range revenueByCompany {
		points = append(points, models.ParetoPoint{
			Name:    truncateLabel(companyNames[companyID]),
			Revenue: revenue,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Revenue != points[j].Revenue {
			return points[i].Revenue > points[j].Revenue
		}
		return points[i].Name < points[j].Name
	})

	var running float64
	for i := range points {
		running += points[i].Revenue
		if totalRevenue > 0 {
			points[i].CumulativePct = running / totalRevenue * 100
		}
	}
	return points
}
