// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package analytics implements the admin dashboard's cohort-revenue and
// retention computation as a pure, synchronous pipeline.
//
// The pipeline consumes one Snapshot (events, contacts, companies fetched
// from the backend) and produces the full DashboardAnalytics output. It runs
// eight steps in dependency order:
//
//  1. Join indexing: contact -> company and company -> name lookups
//  2. Company event grouping: events bucketed by owning company
//  3. Onboarding dating: each company's first-contact month
//  4. Revenue aggregation: realized revenue per company and per date window
//  5. NRR: net revenue retention with a 6-month fallback window
//  6. Concentration: top revenue contributor and dependency alerts
//  7. Cohort table: month-by-month activity/revenue/retention matrix
//  8. Pareto: cumulative revenue contribution series
//
// Every step is a pure function of its inputs: no I/O, no shared mutable
// state, no suspension points. Given identical snapshots the output is
// byte-for-byte deterministic, which is what makes memoization by snapshot
// identity (see internal/cache) safe.
//
// Data-insufficiency conditions (no eligible companies, zero base-period
// revenue, zero total revenue) are reported as explicit sentinel results,
// never as errors: under well-formed input the pipeline cannot fail.
package analytics
