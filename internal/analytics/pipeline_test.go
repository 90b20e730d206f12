// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"reflect"
	"testing"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// fixtureSnapshot builds a small but complete CRM snapshot: two companies
// onboarded in different months, a mix of payment statuses, one direct
// couple contact and one orphaned event.
func fixtureSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Events: []models.Event{
			testEvent("e1", "c1", date(2023, 1, 15), 2000, models.PaymentPaid),
			testEvent("e2", "c1", date(2023, 2, 10), 1000, models.PaymentPaid),
			testEvent("e3", "c2", date(2023, 3, 5), 1500, models.PaymentPaid),
			testEvent("e4", "c2", date(2023, 3, 20), 800, models.PaymentPending),
			testEvent("e5", "c3", date(2023, 3, 25), 600, models.PaymentPaid), // direct couple, unattributed
			testEvent("orphan", "ghost", date(2023, 3, 28), 400, models.PaymentPaid),
		},
		Contacts: []models.Contact{
			testContact("c1", "co1", "Bodas Aurora", date(2023, 1, 3)),
			testContact("c2", "co2", "Eventos Luna", date(2023, 3, 1)),
			testContact("c3", "", "", date(2023, 3, 1)),
		},
		Companies: []models.Company{
			{ID: "co1", Name: "Bodas Aurora"},
			{ID: "co2", Name: "Eventos Luna"},
		},
		FetchedAt: date(2023, 6, 1),
	}
}

func TestPipelineCompute(t *testing.T) {
	t.Parallel()

	now := date(2023, 6, 15)
	p := NewPipelineWithClock(fixedClock(now))

	out := p.Compute(fixtureSnapshot())

	if out.KPIs.ActiveCompanies != 2 {
		t.Errorf("active companies = %d, want 2", out.KPIs.ActiveCompanies)
	}
	// co1: 2000+1000, co2: 1500. Pending, couple and orphan events excluded.
	if out.KPIs.TotalRevenue != 4500 {
		t.Errorf("total revenue = %v, want 4500", out.KPIs.TotalRevenue)
	}
	if out.KPIs.PendingRevenue != 800 {
		t.Errorf("pending revenue = %v, want 800", out.KPIs.PendingRevenue)
	}

	// Both companies are younger than six months: no NRR signal yet.
	if out.KPIs.NRR.NRR != nil {
		t.Errorf("NRR = %d, want nil", *out.KPIs.NRR.NRR)
	}
	if out.KPIs.NRR.Subtitle != "needs more historical data" {
		t.Errorf("NRR subtitle = %q", out.KPIs.NRR.Subtitle)
	}

	// co1 holds 3000/4500 = 66.7%: a red concentration.
	if out.KPIs.Concentration.CompanyName != "Bodas Aurora" {
		t.Errorf("top company = %q, want Bodas Aurora", out.KPIs.Concentration.CompanyName)
	}
	if out.KPIs.Concentration.Level != models.SeverityRed {
		t.Errorf("concentration severity = %v, want red", out.KPIs.Concentration.Level)
	}

	if len(out.Cohorts) != 2 {
		t.Fatalf("got %d cohorts, want 2", len(out.Cohorts))
	}
	if out.Cohorts[0].CohortKey != "2023-01" || out.Cohorts[1].CohortKey != "2023-03" {
		t.Errorf("cohort keys = [%s %s]", out.Cohorts[0].CohortKey, out.Cohorts[1].CohortKey)
	}

	if len(out.Pareto) != 2 {
		t.Fatalf("got %d pareto points, want 2", len(out.Pareto))
	}
	if out.Pareto[0].Name != "Bodas Aurora" || out.Pareto[1].CumulativePct != 100 {
		t.Errorf("pareto = %+v", out.Pareto)
	}

	// co1 at 66.7% red, co2 at 33.3% amber.
	if len(out.DependencyAlerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(out.DependencyAlerts))
	}
	if out.DependencyAlerts[0].Level != models.SeverityRed || out.DependencyAlerts[1].Level != models.SeverityAmber {
		t.Errorf("alerts = %+v", out.DependencyAlerts)
	}

	if !out.ComputedAt.Equal(now) {
		t.Errorf("computed at = %v, want %v", out.ComputedAt, now)
	}
	if !out.SnapshotAt.Equal(date(2023, 6, 1)) {
		t.Errorf("snapshot at = %v", out.SnapshotAt)
	}
}

// Compute is pure: identical snapshot and clock always produce identical
// output, regardless of map iteration order.
func TestPipelineCompute_Deterministic(t *testing.T) {
	t.Parallel()

	p := NewPipelineWithClock(fixedClock(date(2023, 6, 15)))

	first := p.Compute(fixtureSnapshot())
	for i := 0; i < 10; i++ {
		next := p.Compute(fixtureSnapshot())
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d differs:\nfirst: %+v\nnext:  %+v", i, first, next)
		}
	}
}

func TestPipelineRevenueInWindow(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	snap := fixtureSnapshot()

	// March only: co2's paid event. The pending, couple and orphan events
	// in March contribute nothing.
	got := p.RevenueInWindow(snap, date(2023, 3, 1), monthEnd(date(2023, 3, 1)))
	if got != 1500 {
		t.Errorf("March revenue = %v, want 1500", got)
	}

	// Full quarter.
	got = p.RevenueInWindow(snap, date(2023, 1, 1), monthEnd(date(2023, 3, 1)))
	if got != 4500 {
		t.Errorf("Q1 revenue = %v, want 4500", got)
	}
}
