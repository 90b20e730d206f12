// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"testing"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// Every company with at least one contact lands in exactly one cohort,
// keyed by its earliest contact's month; companies without contacts appear
// in none.
func TestCohort_PartitionByOnboardingMonth(t *testing.T) {
	t.Parallel()

	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2023, 1, 10)),
		testContact("c2", "co2", "Planner B", date(2023, 1, 20)),
		testContact("c3", "co3", "Planner C", date(2023, 3, 5)),
		// co3 gains a later contact; it must not create a second cohort entry.
		testContact("c4", "co3", "Planner C", date(2023, 4, 5)),
	}

	rows := buildCohortTable(date(2023, 6, 15), map[string][]models.Event{}, onboardingMonths(contacts), nil)

	if len(rows) != 2 {
		t.Fatalf("got %d cohorts, want 2", len(rows))
	}
	if rows[0].CohortKey != "2023-01" || rows[0].CompaniesCount != 2 {
		t.Errorf("first cohort = %s with %d companies, want 2023-01 with 2", rows[0].CohortKey, rows[0].CompaniesCount)
	}
	if rows[1].CohortKey != "2023-03" || rows[1].CompaniesCount != 1 {
		t.Errorf("second cohort = %s with %d companies, want 2023-03 with 1", rows[1].CohortKey, rows[1].CompaniesCount)
	}

	total := 0
	for _, row := range rows {
		total += row.CompaniesCount
	}
	if total != 3 {
		t.Errorf("cohorts cover %d companies, want all 3 exactly once", total)
	}
}

// Scenario: a company's cohort is decided by its earliest contact, even
// when contacts arrive out of order.
func TestCohort_EarliestContactWins(t *testing.T) {
	t.Parallel()

	contacts := []models.Contact{
		testContact("c-late", "co1", "Planner A", date(2023, 3, 12)),
		testContact("c-early", "co1", "Planner A", date(2023, 1, 25)),
	}

	onboarding := onboardingMonths(contacts)
	month, ok := onboarding["co1"]
	if !ok {
		t.Fatal("co1 missing from onboarding map")
	}
	if got := cohortKey(month); got != "2023-01" {
		t.Errorf("cohort key = %s, want 2023-01", got)
	}
}

func TestCohort_RetentionBounds(t *testing.T) {
	t.Parallel()

	now := date(2023, 4, 15)
	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2023, 1, 1)),
		testContact("c2", "co2", "Planner B", date(2023, 1, 1)),
	}
	events := []models.Event{
		// January: both companies active -> 100%.
		testEvent("e1", "c1", date(2023, 1, 10), 500, models.PaymentPaid),
		testEvent("e2", "c2", date(2023, 1, 20), 300, models.PaymentPaid),
		// February: only co1 active -> 50%.
		testEvent("e3", "c1", date(2023, 2, 10), 500, models.PaymentPaid),
		// March: nobody -> 0%.
	}

	idx := indexContacts(contacts)
	grouped := groupEventsByCompany(events, idx)
	rows := buildCohortTable(now, grouped, onboardingMonths(contacts), totalRevenueByCompany(grouped))

	if len(rows) != 1 {
		t.Fatalf("got %d cohorts, want 1", len(rows))
	}
	months := rows[0].Months
	if len(months) < 3 {
		t.Fatalf("cohort shows %d months, want at least 3", len(months))
	}

	want := []float64{100, 50, 0}
	for i, w := range want {
		if months[i].Retencion != w {
			t.Errorf("month %d retention = %v, want %v", i, months[i].Retencion, w)
		}
	}
	for i, m := range months {
		if m.Retencion < 0 || m.Retencion > 100 {
			t.Errorf("month %d retention %v out of [0,100]", i, m.Retencion)
		}
	}
}

// Scenario: two months of history can never be flagged churned, no matter
// how inactive; the rule needs three computed months.
func TestCohort_TwoMonthsNeverChurned(t *testing.T) {
	t.Parallel()

	now := date(2023, 6, 15)
	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2023, 5, 1)),
	}

	rows := buildCohortTable(now, map[string][]models.Event{}, onboardingMonths(contacts), nil)
	if len(rows) != 1 {
		t.Fatalf("got %d cohorts, want 1", len(rows))
	}
	if got := len(rows[0].Months); got != 2 {
		t.Fatalf("cohort shows %d months, want 2", got)
	}
	if rows[0].IsChurned {
		t.Error("cohort with two months of history flagged churned")
	}
}

func TestIsChurned(t *testing.T) {
	t.Parallel()

	active := models.CohortMonth{Bodas: 1}
	quiet := models.CohortMonth{}

	tests := []struct {
		name   string
		months []models.CohortMonth
		want   bool
	}{
		{"empty", nil, false},
		{"two quiet months", []models.CohortMonth{quiet, quiet}, false},
		{"three quiet months", []models.CohortMonth{quiet, quiet, quiet}, true},
		{"active before gap", []models.CohortMonth{active, active, quiet, quiet, quiet}, true},
		{"recent activity", []models.CohortMonth{quiet, quiet, quiet, active}, false},
		{"activity in lookback", []models.CohortMonth{quiet, quiet, active, quiet, quiet}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isChurned(tt.months); got != tt.want {
				t.Errorf("isChurned = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCohort_TwelveMonthCap(t *testing.T) {
	t.Parallel()

	now := date(2023, 6, 15)
	currentMonth := monthStart(now)
	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2022, 1, 5)),
	}

	rows := buildCohortTable(now, map[string][]models.Event{}, onboardingMonths(contacts), nil)
	if len(rows) != 1 {
		t.Fatalf("got %d cohorts, want 1", len(rows))
	}
	if got := len(rows[0].Months); got != maxCohortMonths {
		t.Errorf("old cohort shows %d months, want capped at %d", got, maxCohortMonths)
	}
	// No displayed month may start after the current month.
	last := addMonths(rows[0].CohortStart, len(rows[0].Months)-1)
	if last.After(currentMonth) {
		t.Errorf("last displayed month %v is after current month %v", last, currentMonth)
	}
}

func TestCohort_TotalRevenueAndLabels(t *testing.T) {
	t.Parallel()

	now := date(2023, 6, 15)
	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2023, 1, 1)),
		testContact("c2", "co2", "Planner B", date(2023, 1, 1)),
	}
	events := []models.Event{
		testEvent("e1", "c1", date(2023, 2, 10), 1500, models.PaymentPaid),
		testEvent("e2", "c2", date(2023, 3, 10), 500, models.PaymentPaid),
	}

	idx := indexContacts(contacts)
	grouped := groupEventsByCompany(events, idx)
	rows := buildCohortTable(now, grouped, onboardingMonths(contacts), totalRevenueByCompany(grouped))

	if len(rows) != 1 {
		t.Fatalf("got %d cohorts, want 1", len(rows))
	}
	row := rows[0]
	if row.Label != "ene 2023" {
		t.Errorf("label = %q, want %q", row.Label, "ene 2023")
	}
	if row.TotalRevenue != 2000 {
		t.Errorf("cohort total revenue = %v, want 2000", row.TotalRevenue)
	}
	if !row.CohortStart.Equal(date(2023, 1, 1)) {
		t.Errorf("cohort start = %v, want 2023-01-01", row.CohortStart)
	}
}

func TestCohort_RowsSortedAscending(t *testing.T) {
	t.Parallel()

	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2023, 4, 1)),
		testContact("c2", "co2", "Planner B", date(2022, 11, 1)),
		testContact("c3", "co3", "Planner C", date(2023, 2, 1)),
	}

	rows := buildCohortTable(date(2023, 6, 15), map[string][]models.Event{}, onboardingMonths(contacts), nil)
	for i := 1; i < len(rows); i++ {
		if rows[i].CohortStart.Before(rows[i-1].CohortStart) {
			t.Fatalf("rows out of order at %d: %v before %v", i, rows[i].CohortStart, rows[i-1].CohortStart)
		}
	}
}

func TestCohort_NoDisplayedMonthInFuture(t *testing.T) {
	t.Parallel()

	// Sweep a band of clock positions; regardless of how the average-month
	// division lands, no cohort may display a month that has not started.
	contacts := []models.Contact{
		testContact("c1", "co1", "Planner A", date(2023, 1, 31)),
		testContact("c2", "co2", "Planner B", date(2023, 7, 1)),
	}
	for day := 1; day <= 28; day += 9 {
		now := time.Date(2024, 2, day, 12, 0, 0, 0, time.UTC)
		currentMonth := monthStart(now)
		rows := buildCohortTable(now, map[string][]models.Event{}, onboardingMonths(contacts), nil)
		for _, row := range rows {
			if len(row.Months) == 0 {
				t.Fatalf("cohort %s has no months at now=%v", row.CohortKey, now)
			}
			last := addMonths(row.CohortStart, len(row.Months)-1)
			if last.After(currentMonth) {
				t.Errorf("cohort %s shows future month %v at now=%v", row.CohortKey, last, now)
			}
		}
	}
}
