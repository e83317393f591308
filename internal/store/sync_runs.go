package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Sync run statuses. A run is left "running" only if the process crashes
// before finalizing it.
const (
	SyncRunRunning = "running"
	SyncRunSuccess = "success"
	SyncRunFailed  = "failed"
)

// SyncRun is one append-only sync log entry.
type SyncRun struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	ErrorJSON  *string
}

// StartSyncRun appends a running entry and returns its id.
func (s *Store) StartSyncRun() (int64, error) {
	res, err := s.conn.Exec(
		`INSERT INTO sync_runs (started_at, status) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), SyncRunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("recording sync run: %w", err)
	}
	return res.LastInsertId()
}

// FinishSyncRun finalizes a run with a terminal status and an optional
// JSON failure summary.
func (s *Store) FinishSyncRun(id int64, status string, errorJSON *string) error {
	_, err := s.conn.Exec(
		`UPDATE sync_runs SET finished_at = ?, status = ?, error_json = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), status, errorJSON, id,
	)
	if err != nil {
		return fmt.Errorf("finalizing sync run %d: %w", id, err)
	}
	return nil
}

// LatestSyncRun returns the most recent run, or nil if none exist.
func (s *Store) LatestSyncRun() (*SyncRun, error) {
	row := s.conn.QueryRow(
		`SELECT id, started_at, finished_at, status, error_json
		 FROM sync_runs ORDER BY id DESC LIMIT 1`)

	var run SyncRun
	var started string
	var finished *string
	err := row.Scan(&run.ID, &started, &finished, &run.Status, &run.ErrorJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest sync run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, started)
	if finished != nil {
		t, _ := time.Parse(time.RFC3339, *finished)
		run.FinishedAt = &t
	}
	return &run, nil
}
