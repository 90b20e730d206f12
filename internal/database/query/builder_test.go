// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

package query

import (
	"testing"
	"time"
)

func TestInsertBuilder_SingleRow(t *testing.T) {
	t.Parallel()

	ib := NewInsertBuilder("companies", "id", "name")
	ib.AddRow("uuid-1", "Bodas Aurora")

	stmt, args, err := ib.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := "INSERT INTO companies (id, name) VALUES (?, ?)"
	if stmt != want {
		t.Errorf("stmt = %q, want %q", stmt, want)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[0] != "uuid-1" || args[1] != "Bodas Aurora" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestInsertBuilder_MultipleRows(t *testing.T) {
	t.Parallel()

	ib := NewInsertBuilder("events", "id", "name", "price")
	ib.AddRow("e1", "Wedding A", 1500.0)
	ib.AddRow("e2", "Wedding B", nil)
	ib.AddRow("e3", "Wedding C", 800.0)

	if ib.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ib.Len())
	}

	stmt, args, err := ib.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := "INSERT INTO events (id, name, price) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)"
	if stmt != want {
		t.Errorf("stmt = %q, want %q", stmt, want)
	}
	if len(args) != 9 {
		t.Fatalf("expected 9 args, got %d", len(args))
	}
	if args[4] != "Wedding B" || args[5] != nil {
		t.Errorf("unexpected args for second row: %v", args[3:6])
	}
}

func TestInsertBuilder_NoRows(t *testing.T) {
	t.Parallel()

	ib := NewInsertBuilder("contacts", "id")
	if _, _, err := ib.Build(); err == nil {
		t.Error("expected error for empty builder")
	}
}

func TestInsertBuilder_ColumnMismatch(t *testing.T) {
	t.Parallel()

	ib := NewInsertBuilder("contacts", "id", "company_id")
	ib.AddRow("c1")

	if _, _, err := ib.Build(); err == nil {
		t.Error("expected error for value/column count mismatch")
	}
}

func TestWhereBuilder_Empty(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder()

	whereClause, args := wb.Build()
	if whereClause != "" {
		t.Errorf("expected empty clause, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_DateWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder()
	wb.AddClause("date >= ?", start)
	wb.AddClause("date <= ?", end)

	whereClause, args := wb.Build()
	want := "WHERE date >= ? AND date <= ?"
	if whereClause != want {
		t.Errorf("clause = %q, want %q", whereClause, want)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[0] != start || args[1] != end {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestWhereBuilder_AddIn(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder()
	wb.AddIn("payment_status", []string{"paid", "partial"})

	whereClause, args := wb.Build()
	want := "WHERE payment_status IN (?, ?)"
	if whereClause != want {
		t.Errorf("clause = %q, want %q", whereClause, want)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}

func TestWhereBuilder_AddInEmpty(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder()
	wb.AddIn("payment_status", nil)

	whereClause, args := wb.Build()
	if whereClause != "" || len(args) != 0 {
		t.Errorf("empty IN should be skipped, got %q with %d args", whereClause, len(args))
	}
}

func TestWhereBuilder_Chaining(t *testing.T) {
	t.Parallel()

	whereClause, args := NewWhereBuilder().
		AddClause("contact_id IS NOT NULL").
		AddIn("payment_status", []string{"paid"}).
		Build()

	want := "WHERE contact_id IS NOT NULL AND payment_status IN (?)"
	if whereClause != want {
		t.Errorf("clause = %q, want %q", whereClause, want)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
}
