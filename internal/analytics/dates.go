// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package analytics

import (
	"fmt"
	"time"
)

// avgDaysPerMonth is the average Gregorian month length used to convert a
// duration into a month offset for cohort bucketing. This approximation is
// load-bearing: near month boundaries it decides which column a cohort's
// final entry lands in, so it must not be replaced with strict calendar
// month arithmetic without re-verifying parity against the dashboard.
const avgDaysPerMonth = 30.44

// monthStart returns the first instant (00:00:00 UTC) of t's calendar month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthEnd returns the last instant of t's calendar month.
func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// monthsBack returns the first day of the month n calendar months before t.
// Month arithmetic is normalized (no day-of-month overflow), matching
// first-of-month date construction.
func monthsBack(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// addMonths returns the first day of the month n calendar months after the
// month containing t.
func addMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// monthsBetween converts the span from cohort month start to the current
// month start into a whole month count using the average month length.
func monthsBetween(from, to time.Time) int {
	days := to.Sub(from).Hours() / 24
	return int(days / avgDaysPerMonth) // truncation == floor for non-negative spans
}

// cohortKey formats a month as the stable cohort identifier, e.g. "2023-01".
func cohortKey(t time.Time) string {
	return t.Format("2006-01")
}

// spanishMonths are the es-ES short month names used for cohort labels,
// matching the dashboard's locale.
var spanishMonths = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// monthLabel renders a cohort month as a localized "Mon YYYY" label,
// e.g. "ene 2023".
func monthLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", spanishMonths[t.Month()-1], t.Year())
}
