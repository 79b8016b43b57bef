// ABOUTME: Core SQLite store for the notebridge server.
// ABOUTME: Handles database initialization, migrations, and connection management.

package store

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Migration version constants
const (
	MigrationV1 = 1 // Initial schema with request_logs table
	MigrationV2 = 2 // Add selftest_runs table for self-test history
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Printf("Database schema version: %d, target version: %d", currentVersion, CurrentSchemaVersion)

	if currentVersion < MigrationV1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}
	if currentVersion < MigrationV2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}
	return nil
}

func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Store) recordMigration(version int, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, version, description)
	return err
}

func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS request_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			action TEXT,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT,
			request_body TEXT,
			response_body TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp);
		CREATE INDEX IF NOT EXISTS idx_request_logs_action ON request_logs(action);
		CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs(status_code);
	`)
	if err != nil {
		return err
	}
	return s.recordMigration(MigrationV1, "request_logs table and indexes")
}

func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS selftest_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			report TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_selftest_runs_started ON selftest_runs(started_at);
	`)
	if err != nil {
		return err
	}
	return s.recordMigration(MigrationV2, "selftest_runs table")
}
