// Konfetti CRM Analytics - Cohort Revenue and Retention Analytics
// Copyright 2026 Konfetti
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/konfetti-app/konfetti-analytics

// Package database provides the DuckDB-backed snapshot store. The service
// persists the last successfully fetched Supabase snapshot so a restart can
// serve analytics immediately, before the first refresh completes.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/konfetti-app/konfetti-analytics/internal/config"
	"github.com/konfetti-app/konfetti-analytics/internal/logging"
)

// DB wraps the DuckDB connection used for snapshot persistence.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (or creates) the DuckDB database at the configured path and
// initializes the snapshot schema.
//
// DuckDB holds an exclusive lock on the database file, so the connection
// pool is effectively a single connection. Threads and memory limits are
// passed through the connection string.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	dbDir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB is embedded and single-writer: pooling idle connections only
	// multiplies file handles without adding concurrency.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn, path: cfg.Path}

	if err := db.initialize(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Snapshot database opened")

	return db, nil
}

// initialize creates the snapshot tables and checkpoints the schema so the
// WAL is flushed before normal operations begin.
func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := db.createTables(ctx); err != nil {
		return err
	}

	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}
	return nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Conn exposes the underlying connection for tests.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Checkpoint forces DuckDB to flush the WAL into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the database. The checkpoint is best-effort:
// a failure is logged but does not prevent the close.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint before close failed")
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	logging.Debug().Str("path", db.path).Msg("Snapshot database closed")
	return nil
}
