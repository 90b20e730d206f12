// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// nrrWindow holds the boundaries of one NRR comparison: companies onboarded
// strictly before eligibilityCutoff compare their revenue in
// [baseStart, baseEnd] against the current calendar month.
type nrrWindow struct {
	months             models.NRRWindowMonths
	eligibilityCutoff  time.Time
	baseStart, baseEnd time.Time
}

// nrrWindowFor builds the trailing window n months back from now:
// eligibility cutoff at the first day of month (now - n), base period from
// the first day of month (now - n - 1) through the last day of month
// (now - n).
func nrrWindowFor(now time.Time, n models.NRRWindowMonths) nrrWindow {
	cutoff := monthsBack(now, int(n))
	return nrrWindow{
		months:            n,
		eligibilityCutoff: cutoff,
		baseStart:         monthsBack(now, int(n)+1),
		baseEnd:           monthEnd(cutoff),
	}
}

// eligibleCompanies returns the companies whose onboarding month is strictly
// before the cutoff. The strict comparison matters: a company onboarded in
// exactly the cutoff month has not existed for the full window and would
// inflate retention.
func eligibleCompanies(onboarding map[string]time.Time, cutoff time.Time) []string {
	var eligible []string
	for companyID, month := range onboarding {
		if month.Before(cutoff) {
			eligible = append(eligible, companyID)
		}
	}
	return eligible
}

// calculateNRR computes net revenue retention: current-month realized
// revenue of long-standing companies divided by their revenue in the
// trailing base period.
//
// The standard window is 12 months. When no company has that much history —
// a young platform would otherwise never show a retention signal — the
// calculation falls back to a 6-month window and flags the result. When no
// window yields eligible companies, or the base period has zero revenue, the
// result carries a nil NRR with an explanatory subtitle; it never divides by
// zero and never produces NaN or Inf.
func calculateNRR(now time.Time, eventsByCompany map[string][]models.Event, onboarding map[string]time.Time) models.NRRResult {
	window := nrrWindowFor(now, models.NRRWindow12)
	eligible := eligibleCompanies(onboarding, window.eligibilityCutoff)
	usedFallback := false

	if len(eligible) == 0 {
		window = nrrWindowFor(now, models.NRRWindow6)
		eligible = eligibleCompanies(onboarding, window.eligibilityCutoff)
		usedFallback = true
	}
	if len(eligible) == 0 {
		return models.NRRResult{
			Label:    "N/A",
			Subtitle: "needs more historical data",
		}
	}

	pastRevenue := revenueInWindow(eventsByCompany, eligible, window.baseStart, window.baseEnd)
	currentRevenue := revenueInWindow(eventsByCompany, eligible, monthStart(now), monthEnd(now))

	if pastRevenue == 0 {
		return models.NRRResult{
			Label:          "N/A",
			Subtitle:       "no revenue in base period",
			WindowMonths:   window.months,
			UsedFallback:   usedFallback,
			CurrentRevenue: currentRevenue,
		}
	}

	nrr := int(math.Round(currentRevenue / pastRevenue * 100))
	subtitle := fmt.Sprintf("vs. %d-month base period", window.months)
	if usedFallback {
		subtitle += " (fallback)"
	}

	return models.NRRResult{
		NRR:            &nrr,
		Label:          fmt.Sprintf("%d%%", nrr),
		Subtitle:       subtitle,
		WindowMonths:   window.months,
		UsedFallback:   usedFallback,
		PastRevenue:    pastRevenue,
		CurrentRevenue: currentRevenue,
	}
}
