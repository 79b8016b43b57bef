// ABOUTME: Tests for SQLite store initialization and migrations.
// ABOUTME: Verifies schema versioning and idempotent re-opening of an existing database.

package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		t.Fatalf("getCurrentMigrationVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s1, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.LogRequest(&RequestLog{Method: "POST", Path: "/v1/command", StatusCode: 200, DurationMs: 5}); err != nil {
		t.Fatalf("LogRequest() error = %v", err)
	}
	s1.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer s2.Close()

	logs, err := s2.GetRequestLogs(&RequestLogQuery{})
	if err != nil {
		t.Fatalf("GetRequestLogs() error = %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("logs = %d, want 1 surviving reopen", len(logs))
	}
}
