// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// companyRef links a contact to its owning company.
type companyRef struct {
	CompanyID   string
	CompanyName string
}

// indexContacts builds the contact ID -> company lookup. Only contacts
// carrying both a company link and an embedded company name are indexed;
// contacts without one are simply absent from the map (a direct-to-couple
// contact, not an error).
func indexContacts(contacts []models.Contact) map[string]companyRef {
	idx := make(map[string]companyRef, len(contacts))
	for _, c := range contacts {
		if c.CompanyID == nil || c.Company == nil || c.Company.Name == "" {
			continue
		}
		idx[c.ID] = companyRef{CompanyID: *c.CompanyID, CompanyName: c.Company.Name}
	}
	return idx
}

// indexCompanies builds the company ID -> display name lookup.
func indexCompanies(companies []models.Company) map[string]string {
	idx := make(map[string]string, len(companies))
	for _, c := range companies {
		idx[c.ID] = c.Name
	}
	return idx
}
