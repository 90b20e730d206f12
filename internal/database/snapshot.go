// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/konfetti-app/konfetti-analytics/internal/database/query"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
	"github.com/konfetti-app/konfetti-analytics/internal/metrics"
	"github.com/konfetti-app/konfetti-analytics/internal/models"
)

// ErrNoSnapshot is returned by LoadSnapshot when the store has never been
// written to. Callers treat it as "cold start", not as a failure.
var ErrNoSnapshot = errors.New("no snapshot stored")

// insertBatchSize caps the number of rows per INSERT statement. DuckDB
// handles large statements fine; the cap keeps bind-argument counts bounded.
const insertBatchSize = 500

// createTables creates the snapshot schema. All columns are defined up
// front; snapshot_meta holds exactly one row describing the stored snapshot.
func (db *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			date TIMESTAMP,
			status VARCHAR NOT NULL DEFAULT '',
			price DOUBLE,
			currency VARCHAR NOT NULL DEFAULT '',
			payment_status VARCHAR NOT NULL DEFAULT '',
			contact_id VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id VARCHAR PRIMARY KEY,
			contact_name VARCHAR NOT NULL DEFAULT '',
			contact_type VARCHAR NOT NULL DEFAULT '',
			company_id VARCHAR,
			created_at TIMESTAMP NOT NULL,
			company_name VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY,
			fetched_at TIMESTAMP NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// SaveSnapshot replaces the stored snapshot with the given one in a single
// transaction. The store keeps exactly one snapshot; history is not needed
// because the pipeline always recomputes from the latest data.
func (db *DB) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	start := time.Now()
	err := db.saveSnapshot(ctx, snap)
	metrics.RecordDBQuery("save", "snapshot", time.Since(start), err)
	if err != nil {
		return err
	}

	logging.Info().
		Int("events", len(snap.Events)).
		Int("contacts", len(snap.Contacts)).
		Int("companies", len(snap.Companies)).
		Time("fetched_at", snap.FetchedAt).
		Dur("duration", time.Since(start)).
		Msg("Snapshot persisted")
	return nil
}

func (db *DB) saveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"events", "contacts", "companies", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := insertEvents(ctx, tx, snap.Events); err != nil {
		return err
	}
	if err := insertContacts(ctx, tx, snap.Contacts); err != nil {
		return err
	}
	if err := insertCompanies(ctx, tx, snap.Companies); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (id, fetched_at) VALUES (1, ?)", snap.FetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, events []models.Event) error {
	for i := 0; i < len(events); i += insertBatchSize {
		end := min(i+insertBatchSize, len(events))
		ib := query.NewInsertBuilder("events",
			"id", "name", "date", "status", "price", "currency", "payment_status", "contact_id")
		for _, e := range events[i:end] {
			ib.AddRow(e.ID, e.Name, nullableTime(e.Date), e.Status,
				nullableFloat(e.Price), e.Currency, string(e.PaymentStatus), nullableString(e.ContactID))
		}
		if err := execInsert(ctx, tx, ib); err != nil {
			return err
		}
	}
	return nil
}

func insertContacts(ctx context.Context, tx *sql.Tx, contacts []models.Contact) error {
	for i := 0; i < len(contacts); i += insertBatchSize {
		end := min(i+insertBatchSize, len(contacts))
		ib := query.NewInsertBuilder("contacts",
			"id", "contact_name", "contact_type", "company_id", "created_at", "company_name")
		for _, c := range contacts[i:end] {
			var companyName interface{}
			if c.Company != nil {
				companyName = c.Company.Name
			}
			ib.AddRow(c.ID, c.ContactName, string(c.ContactType),
				nullableString(c.CompanyID), c.CreatedAt.UTC(), companyName)
		}
		if err := execInsert(ctx, tx, ib); err != nil {
			return err
		}
	}
	return nil
}

func insertCompanies(ctx context.Context, tx *sql.Tx, companies []models.Company) error {
	for i := 0; i < len(companies); i += insertBatchSize {
		end := min(i+insertBatchSize, len(companies))
		ib := query.NewInsertBuilder("companies", "id", "name")
		for _, co := range companies[i:end] {
			ib.AddRow(co.ID, co.Name)
		}
		if err := execInsert(ctx, tx, ib); err != nil {
			return err
		}
	}
	return nil
}

func execInsert(ctx context.Context, tx *sql.Tx, ib *query.InsertBuilder) error {
	if ib.Len() == 0 {
		return nil
	}
	stmt, args, err := ib.Build()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("batch insert failed: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored snapshot back. Returns ErrNoSnapshot when
// the store is empty.
func (db *DB) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	snap, err := db.loadSnapshot(ctx)
	metrics.RecordDBQuery("load", "snapshot", time.Since(start), err)
	return snap, err
}

func (db *DB) loadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}

	row := db.conn.QueryRowContext(ctx, "SELECT fetched_at FROM snapshot_meta WHERE id = 1")
	if err := row.Scan(&snap.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	snap.FetchedAt = snap.FetchedAt.UTC()

	events, err := db.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	snap.Events = events

	contacts, err := db.loadContacts(ctx)
	if err != nil {
		return nil, err
	}
	snap.Contacts = contacts

	companies, err := db.loadCompanies(ctx)
	if err != nil {
		return nil, err
	}
	snap.Companies = companies

	return snap, nil
}

func (db *DB) loadEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, date, status, price, currency, payment_status, contact_id
		 FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []models.Event{}
	for rows.Next() {
		var (
			e         models.Event
			date      sql.NullTime
			price     sql.NullFloat64
			contactID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &date, &e.Status, &price,
			&e.Currency, &e.PaymentStatus, &contactID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if date.Valid {
			t := date.Time.UTC()
			e.Date = &t
		}
		if price.Valid {
			p := price.Float64
			e.Price = &p
		}
		if contactID.Valid {
			id := contactID.String
			e.ContactID = &id
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (db *DB) loadContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, contact_name, contact_type, company_id, created_at, company_name
		 FROM contacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	contacts := []models.Contact{}
	for rows.Next() {
		var (
			c           models.Contact
			companyID   sql.NullString
			companyName sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.ContactName, &c.ContactType,
			&companyID, &c.CreatedAt, &companyName); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		if companyID.Valid {
			id := companyID.String
			c.CompanyID = &id
		}
		if companyName.Valid {
			c.Company = &models.EmbeddedCompany{Name: companyName.String}
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (db *DB) loadCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, name FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	companies := []models.Company{}
	for rows.Next() {
		var co models.Company
		if err := rows.Scan(&co.ID, &co.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, co)
	}
	return companies, rows.Err()
}

// PaidRevenueInWindow sums realized revenue for stored events dated within
// [start, end], inclusive on both ends. Only paid events with a non-zero
// price whose contact carries a company attribution count, matching the
// in-memory aggregator's rules. Undated events never match a window.
func (db *DB) PaidRevenueInWindow(ctx context.Context, start, end time.Time) (float64, error) {
	queryStart := time.Now()
	revenue, err := db.paidRevenueInWindow(ctx, start, end)
	metrics.RecordDBQuery("revenue_window", "events", time.Since(queryStart), err)
	return revenue, err
}

func (db *DB) paidRevenueInWindow(ctx context.Context, start, end time.Time) (float64, error) {
	wb := query.NewWhereBuilder()
	wb.AddClause("c.company_id IS NOT NULL")
	wb.AddClause("e.payment_status = ?", string(models.PaymentPaid))
	wb.AddClause("e.price IS NOT NULL")
	wb.AddClause("e.price <> 0")
	wb.AddClause("e.date >= ?", start.UTC())
	wb.AddClause("e.date <= ?", end.UTC())
	where, args := wb.Build()

	stmt := fmt.Sprintf(
		"SELECT COALESCE(SUM(e.price), 0) FROM events e JOIN contacts c ON e.contact_id = c.id %s",
		where)

	var revenue float64
	if err := db.conn.QueryRowContext(ctx, stmt, args...).Scan(&revenue); err != nil {
		return 0, fmt.Errorf("failed to query revenue window: %w", err)
	}
	return revenue, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
