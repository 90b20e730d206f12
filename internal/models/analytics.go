// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package models

import "time"

// Severity classifies revenue concentration risk.
type Severity string

const (
	SeverityGreen Severity = "green"
	SeverityAmber Severity = "amber"
	SeverityRed   Severity = "red"
)

// NRRWindowMonths identifies which trailing window an NRR result was
// computed over: the standard 12-month window or the 6-month fallback used
// when no company has 12 months of history yet.
type NRRWindowMonths int

const (
	NRRWindow12 NRRWindowMonths = 12
	NRRWindow6  NRRWindowMonths = 6
)

// NRRResult is the net-revenue-retention KPI. NRR is nil when the metric
// cannot be computed (no eligible companies at any window, or zero revenue
// in the base period); Label and Subtitle then carry the reason. NRR is
// never NaN or Inf.
type NRRResult struct {
	NRR            *int            `json:"nrr"`
	Label          string          `json:"label"`
	Subtitle       string          `json:"subtitle"`
	WindowMonths   NRRWindowMonths `json:"window_months,omitempty"`
	UsedFallback   bool            `json:"used_fallback"`
	PastRevenue    float64         `json:"past_revenue"`
	CurrentRevenue float64         `json:"current_revenue"`
}

// ConcentrationResult reports the single largest revenue contributor and its
// share of total revenue. With zero total revenue the result degenerates to
// "—" / 0% / green rather than dividing by zero.
type ConcentrationResult struct {
	CompanyName string   `json:"company_name"`
	Revenue     float64  `json:"revenue"`
	Pct         float64  `json:"pct"`
	Level       Severity `json:"level"`
}

// DependencyAlert flags one company whose revenue share exceeds the amber
// threshold. Alerts are sorted by Pct descending.
type DependencyAlert struct {
	CompanyName string   `json:"company_name"`
	Pct         float64  `json:"pct"`
	Level       Severity `json:"level"`
}

// CohortMonth is one relative-month cell of a cohort row.
//
// Bodas counts events dated inside the month window regardless of payment
// status; Ingresos sums only paid revenue; Retencion is the percentage of
// cohort companies with at least one event in the window.
type CohortMonth struct {
	Bodas     int     `json:"bodas"`
	Ingresos  float64 `json:"ingresos"`
	Retencion float64 `json:"retencion"`
}

// CohortRow is one onboarding-month cohort of companies.
type CohortRow struct {
	CohortKey      string        `json:"cohort_key"`
	Label          string        `json:"label"`
	CohortStart    time.Time     `json:"cohort_start"`
	CompaniesCount int           `json:"companies_count"`
	TotalRevenue   float64       `json:"total_revenue"`
	Months         []CohortMonth `json:"months"`
	IsChurned      bool          `json:"is_churned"`
}

// ParetoPoint is one company in the cumulative-revenue Pareto series,
// sorted by revenue descending.
type ParetoPoint struct {
	Name          string  `json:"name"`
	Revenue       float64 `json:"revenue"`
	CumulativePct float64 `json:"cumulative_pct"`
}

// KPIs are the headline scalars of the dashboard.
type KPIs struct {
	// ActiveCompanies counts companies with at least one qualifying paid
	// revenue event. Companies with zero realized revenue are not counted.
	ActiveCompanies int `json:"active_companies"`

	// TotalRevenue is the realized revenue across all companies.
	TotalRevenue float64 `json:"total_revenue"`

	// PendingRevenue sums prices of partial/pending events. Display-only;
	// never feeds the cohort engine.
	PendingRevenue float64 `json:"pending_revenue"`

	NRR           NRRResult           `json:"nrr"`
	Concentration ConcentrationResult `json:"concentration"`
}

// DashboardAnalytics is the complete output of one pipeline run.
type DashboardAnalytics struct {
	KPIs             KPIs              `json:"kpis"`
	Cohorts          []CohortRow       `json:"cohorts"`
	Pareto           []ParetoPoint     `json:"pareto"`
	DependencyAlerts []DependencyAlert `json:"dependency_alerts"`
	ComputedAt       time.Time         `json:"computed_at"`
	SnapshotAt       time.Time         `json:"snapshot_at"`
}
