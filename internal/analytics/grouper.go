// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// groupEventsByCompany buckets events by their owning company, resolved
// transitively through the contact link. Per-company slices preserve input
// order. Events with no contact, or whose contact resolves to no company,
// are dropped silently: they are direct-to-couple events with no B2B
// attribution and belong in no company-keyed aggregate.
func groupEventsByCompany(events []models.Event, contactIdx map[string]companyRef) map[string][]models.Event {
	grouped := make(map[string][]models.Event)
	for _, ev := range events {
		if ev.ContactID == nil {
			continue
		}
		ref, ok := contactIdx[*ev.ContactID]
		if !ok {
			continue
		}
		grouped[ref.CompanyID] = append(grouped[ref.CompanyID], ev)
	}
	return grouped
}
