// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package logging provides centralized zerolog-based logging for the
// analytics service.
//
// A single global logger is configured once at startup and reached through
// package-level helpers, so every component logs with the same format and
// level without threading a logger through constructors:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("component", "refresh").Msg("snapshot refreshed")
//	logging.Error().Err(err).Msg("supabase fetch failed")
//
// Request handlers log through Ctx, which stamps the request ID carried in
// the context onto every event:
//
//	logging.Ctx(ctx).Info().Int("cohorts", n).Msg("dashboard computed")
//
// Always terminate a chain with .Msg() or .Send(); an unterminated chain
// emits nothing.
package logging
