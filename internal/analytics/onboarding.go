// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// onboardingMonths derives each company's onboarding cohort: the calendar
// month of the earliest created_at among its contacts. The first contact
// seen for a company initializes the entry; later contacts replace it only
// when strictly earlier, so identical timestamps resolve first-update-wins.
// Companies with zero contacts have no entry and are excluded from every
// cohort computation downstream.
func onboardingMonths(contacts []models.Contact) map[string]time.Time {
	earliest := make(map[string]time.Time)
	for _, c := range contacts {
		if c.CompanyID == nil {
			continue
		}
		id := *c.CompanyID
		if cur, ok := earliest[id]; !ok || c.CreatedAt.Before(cur) {
			earliest[id] = c.CreatedAt
		}
	}

	months := make(map[string]time.Time, len(earliest))
	for id, t := range earliest {
		months[id] = monthStart(t)
	}
	return months
}
