// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package query provides SQL statement building utilities for the database
// package. It keeps placeholder assembly in one place and out of the
// persistence code.
package query

import (
	"fmt"
	"strings"
)

// InsertBuilder assembles multi-row INSERT statements with parameterized
// arguments. Rows are buffered and flushed as a single statement, which is
// significantly faster than per-row inserts on DuckDB.
//
// Example usage:
//
//	ib := query.NewInsertBuilder("companies", "id", "name")
//	ib.AddRow("uuid-1", "Bodas Aurora")
//	ib.AddRow("uuid-2", "Eventos Sol")
//	stmt, args := ib.Build()
//	// INSERT INTO companies (id, name) VALUES (?, ?), (?, ?)
type InsertBuilder struct {
	table   string
	columns []string
	rows    int
	args    []interface{}
}

// NewInsertBuilder creates a builder targeting the given table and columns.
func NewInsertBuilder(table string, columns ...string) *InsertBuilder {
	return &InsertBuilder{
		table:   table,
		columns: columns,
		args:    []interface{}{},
	}
}

// AddRow appends one row of values. The number of values must match the
// column list given at construction; mismatches surface at Build time.
func (ib *InsertBuilder) AddRow(values ...interface{}) *InsertBuilder {
	ib.rows++
	ib.args = append(ib.args, values...)
	return ib
}

// Len returns the number of buffered rows.
func (ib *InsertBuilder) Len() int {
	return ib.rows
}

// Build returns the assembled INSERT statement and its bind arguments.
// It returns an error when no rows were added or when a row's value count
// does not match the column list.
func (ib *InsertBuilder) Build() (string, []interface{}, error) {
	if ib.rows == 0 {
		return "", nil, fmt.Errorf("insert into %s: no rows", ib.table)
	}
	if len(ib.args) != ib.rows*len(ib.columns) {
		return "", nil, fmt.Errorf("insert into %s: %d values for %d rows of %d columns",
			ib.table, len(ib.args), ib.rows, len(ib.columns))
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ib.columns)), ", ") + ")"
	rowList := make([]string, ib.rows)
	for i := range rowList {
		rowList[i] = rowPlaceholder
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		ib.table, strings.Join(ib.columns, ", "), strings.Join(rowList, ", "))
	return stmt, ib.args, nil
}

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("date >= ?", start)
//	wb.AddClause("date <= ?", end)
//	whereClause, args := wb.Build()
//	// WHERE date >= ? AND date <= ?
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddIn adds a "column IN (?, ...)" condition. Empty value lists are skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// Build returns the WHERE clause (including the leading "WHERE", or "" when
// no conditions were added) and the bind arguments.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "", wb.args
	}
	return "WHERE " + strings.Join(wb.clauses, " AND "), wb.args
}
