// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package models defines the domain entities fetched from the Supabase
// backend and the derived analytics types produced by the pipeline.
//
// All entities are read-only snapshots: the analytics pipeline never mutates
// them, and they live only for the duration of one computation.
package models

import "time"

// PaymentStatus is the collection state of an event's price.
type PaymentStatus string

const (
	// PaymentPaid means the full price has been collected. Only paid events
	// count toward realized revenue.
	PaymentPaid PaymentStatus = "paid"

	// PaymentPartial means a deposit or partial amount has been collected.
	PaymentPartial PaymentStatus = "partial"

	// PaymentPending means nothing has been collected yet.
	PaymentPending PaymentStatus = "pending"
)

// ContactType distinguishes direct couples from B2B wedding planners.
type ContactType string

const (
	ContactCouple         ContactType = "couple"
	ContactWeddingPlanner ContactType = "wedding_planner"
)

// Event is one wedding/event instance.
//
// Date, Price and ContactID are nullable in the backend schema and modeled
// as pointers: an event with no date never matches a date window, an event
// with no price contributes no revenue, and an event with no contact has no
// B2B attribution and is excluded from company-keyed aggregates.
type Event struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Date          *time.Time    `json:"date"`
	Status        string        `json:"status"`
	Price         *float64      `json:"price"`
	Currency      string        `json:"currency"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	ContactID     *string       `json:"contact_id"`
}

// HasPaidRevenue reports whether the event counts toward realized revenue:
// payment collected in full and a non-nil, non-zero price. A paid event with
// price 0 is treated as "no revenue" (deliberate product decision, mirrored
// from the dashboard).
func (e *Event) HasPaidRevenue() bool {
	return e.PaymentStatus == PaymentPaid && e.Price != nil && *e.Price != 0
}

// PaidAmount returns the realized revenue of the event, or 0 when the event
// does not qualify under HasPaidRevenue.
func (e *Event) PaidAmount() float64 {
	if !e.HasPaidRevenue() {
		return 0
	}
	return *e.Price
}

// EmbeddedCompany is the company record embedded in a contact row by the
// PostgREST `companies(name)` select.
type EmbeddedCompany struct {
	Name string `json:"name"`
}

// Contact is a client record: either a couple or a wedding-planner employee.
// CreatedAt doubles as the onboarding proxy for the owning company.
type Contact struct {
	ID          string           `json:"id"`
	ContactName string           `json:"contact_name"`
	ContactType ContactType      `json:"contact_type"`
	CompanyID   *string          `json:"company_id"`
	CreatedAt   time.Time        `json:"created_at"`
	Company     *EmbeddedCompany `json:"companies"`
}

// Company is a wedding-planning business that owns contacts, which in turn
// own events.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot bundles the three collections one pipeline run consumes, together
// with the time they were fetched from the backend. FetchedAt doubles as the
// memoization key for cached pipeline results.
type Snapshot struct {
	Events    []Event   `json:"events"`
	Contacts  []Contact `json:"contacts"`
	Companies []Company `json:"companies"`
	FetchedAt time.Time `json:"fetched_at"`
}
