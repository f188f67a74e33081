package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			start_at TEXT NOT NULL,
			end_at TEXT,
			zone TEXT NOT NULL,
			duration_hours TEXT NOT NULL,
			cost_paid TEXT NOT NULL,
			account TEXT NOT NULL,
			base_tariff TEXT,
			applied_tariff TEXT,
			environmental_label TEXT,
			license_plate TEXT NOT NULL DEFAULT '',
			receipt_status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_zone ON records(zone)`,
		`CREATE INDEX IF NOT EXISTS idx_records_start ON records(start_at)`,

		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id TEXT PRIMARY KEY,
			source_hash TEXT NOT NULL,
			rows_seen INTEGER NOT NULL,
			records_added INTEGER NOT NULL,
			duplicates_skipped INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			ingested_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_runs_hash ON ingest_runs(source_hash)`,

		`CREATE TABLE IF NOT EXISTS rejections (
			run_id TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			row_id TEXT NOT NULL DEFAULT '',
			field TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			PRIMARY KEY (run_id, row_index),
			FOREIGN KEY (run_id) REFERENCES ingest_runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rejections_row ON rejections(row_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}

	return nil
}

func firstLine(stmt string) string {
	for i, c := range stmt {
		if c == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
