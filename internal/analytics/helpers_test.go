// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// Fixture helpers shared across the analytics tests.

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// fixedClock pins the pipeline's "now" for reproducible windows.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// testEvent builds a dated event owned by the given contact.
func testEvent(id, contactID string, day time.Time, price float64, status models.PaymentStatus) models.Event {
	ev := models.Event{
		ID:            id,
		Name:          "Wedding " + id,
		Date:          timePtr(day),
		Status:        "confirmed",
		Currency:      "EUR",
		PaymentStatus: status,
	}
	if contactID != "" {
		ev.ContactID = strPtr(contactID)
	}
	if price != 0 {
		ev.Price = floatPtr(price)
	}
	return ev
}

// testContact builds a contact linked to a company with an embedded name.
func testContact(id, companyID, companyName string, createdAt time.Time) models.Contact {
	c := models.Contact{
		ID:          id,
		ContactName: "Contact " + id,
		ContactType: models.ContactWeddingPlanner,
		CreatedAt:   createdAt,
	}
	if companyID != "" {
		c.CompanyID = strPtr(companyID)
		c.Company = &models.EmbeddedCompany{Name: companyName}
	}
	return c
}
