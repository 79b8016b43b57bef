// ABOUTME: Self-test run history storage.
// ABOUTME: Persists full reports as JSON so the advisory gate can consult the last run.

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SelftestRun is one persisted self-test report.
type SelftestRun struct {
	ID        int64           `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Status    string          `json:"status"`
	Report    json.RawMessage `json:"report"`
}

// SaveSelftestRun persists a report.
func (s *Store) SaveSelftestRun(startedAt time.Time, status string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO selftest_runs (started_at, status, report)
		VALUES (?, ?, ?)
	`, startedAt, status, string(data))
	return err
}

// LastSelftestRun returns the most recent run, or nil when none exists.
func (s *Store) LastSelftestRun() (*SelftestRun, error) {
	run := &SelftestRun{}
	var report string
	err := s.db.QueryRow(`
		SELECT id, started_at, status, report FROM selftest_runs
		ORDER BY started_at DESC, id DESC LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &run.Status, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Report = json.RawMessage(report)
	return run, nil
}
