// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"sort"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// maxCohortMonths caps how many relative months a cohort row displays.
const maxCohortMonths = 12

// churnLookbackMonths is how many trailing months must all be inactive
// before a cohort is flagged churned.
const churnLookbackMonths = 3

// buildCohortTable buckets companies by onboarding month and produces one
// row per cohort: a month-by-month matrix of event counts (bodas), paid
// revenue (ingresos) and the percentage of cohort companies active that
// month (retencion). Rows are sorted by cohort month ascending.
func buildCohortTable(
	now time.Time,
	eventsByCompany map[string][]models.Event,
	onboarding map[string]time.Time,
	revenueByCompany map[string]float64,
) []models.CohortRow {
	// Partition companies into cohorts. Every company with an onboarding
	// month lands in exactly one bucket.
	cohortCompanies := make(map[time.Time][]string)
	for companyID, month := range onboarding {
		cohortCompanies[month] = append(cohortCompanies[month], companyID)
	}

	currentMonth := monthStart(now)
	rows := make([]models.CohortRow, 0, len(cohortCompanies))

	for cohortStart, companyIDs := range cohortCompanies {
		monthsSince := monthsBetween(cohortStart, currentMonth)
		monthsToShow := monthsSince + 1
		if monthsToShow > maxCohortMonths {
			monthsToShow = maxCohortMonths
		}

		months := make([]models.CohortMonth, 0, maxCohortMonths)
		for m := 0; m < monthsToShow; m++ {
			windowStart := addMonths(cohortStart, m)
			// The average-month-length division can overshoot near month
			// boundaries; never emit a month that has not started yet.
			if windowStart.After(currentMonth) {
				break
			}
			windowEnd := monthEnd(windowStart)

			var bodas int
			var ingresos float64
			var active int
			for _, companyID := range companyIDs {
				companyEvents := 0
				for _, ev := range eventsByCompany[companyID] {
					if ev.Date == nil || ev.Date.Before(windowStart) || ev.Date.After(windowEnd) {
						continue
					}
					// Any dated event counts as activity; only paid ones
					// carry revenue.
					companyEvents++
					ingresos += ev.PaidAmount()
				}
				bodas += companyEvents
				if companyEvents > 0 {
					active++
				}
			}

			retencion := float64(active) / float64(len(companyIDs)) * 100
			months = append(months, models.CohortMonth{
				Bodas:     bodas,
				Ingresos:  ingresos,
				Retencion: retencion,
			})
		}

		var totalRevenue float64
		for _, companyID := range companyIDs {
			totalRevenue += revenueByCompany[companyID]
		}

		rows = append(rows, models.CohortRow{
			CohortKey:      cohortKey(cohortStart),
			Label:          monthLabel(cohortStart),
			CohortStart:    cohortStart,
			CompaniesCount: len(companyIDs),
			TotalRevenue:   totalRevenue,
			Months:         months,
			IsChurned:      isChurned(months),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CohortStart.Before(rows[j].CohortStart)
	})
	return rows
}

// isChurned flags a cohort whose last three computed months all had zero
// event activity. Cohorts with fewer than three months of history are never
// flagged: that is insufficient data, not churn. A cohort onboarded this
// month therefore cannot be evaluated yet, and a cohort quiet for its last
// three months is flagged even if it was active before the gap.
func isChurned(months []models.CohortMonth) bool {
	if len(months) < churnLookbackMonths {
		return false
	}
	for _, m := range months[len(months)-churnLookbackMonths:] {
		if m.Bodas != 0 {
			return false
		}
	}
	return true
}
