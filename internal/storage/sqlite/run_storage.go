package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// RunStorage implements interfaces.RunStorage.
type RunStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewRunStorage builds a RunStorage over db.
func NewRunStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{db: db, logger: logger}
}

func scanRun(row interface{ Scan(...any) error }) (*models.Run, error) {
	var r models.Run
	var counterJSON, logsJSON string
	var progressTotal sql.NullInt64
	var startedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&r.ID, &r.Kind, &r.Source, &r.Status, &counterJSON, &r.CurrentStep,
		&r.ProgressCount, &progressTotal, &logsJSON, &r.ErrorMessage, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(counterJSON), &r.Counters)
	json.Unmarshal([]byte(logsJSON), &r.Logs)
	if progressTotal.Valid {
		v := int(progressTotal.Int64)
		r.ProgressTotal = &v
	}
	r.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		r.CompletedAt = &t
	}
	return &r, nil
}

// Insert adds a new run row.
func (s *RunStorage) Insert(ctx context.Context, r *models.Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	return s.write(ctx, r, true)
}

// Update overwrites an existing run row in place, used to append log
// entries and bump counters as the run progresses.
func (s *RunStorage) Update(ctx context.Context, r *models.Run) error {
	return s.write(ctx, r, false)
}

func (s *RunStorage) write(ctx context.Context, r *models.Run, insert bool) error {
	counterJSON, err := json.Marshal(r.Counters)
	if err != nil {
		return fmt.Errorf("marshaling run counters: %w", err)
	}
	logsJSON, err := json.Marshal(r.Logs)
	if err != nil {
		return fmt.Errorf("marshaling run logs: %w", err)
	}

	var progressTotal any
	if r.ProgressTotal != nil {
		progressTotal = *r.ProgressTotal
	}

	if insert {
		_, err = s.db.DB().ExecContext(ctx, `
			INSERT INTO runs (id, kind, source, status, counters_json, current_step, progress_count,
				progress_total, logs_json, error_message, started_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.Kind, r.Source, r.Status, string(counterJSON), r.CurrentStep, r.ProgressCount,
			progressTotal, string(logsJSON), r.ErrorMessage, r.StartedAt.Unix(), nullableTime(r.CompletedAt))
	} else {
		_, err = s.db.DB().ExecContext(ctx, `
			UPDATE runs SET status = ?, counters_json = ?, current_step = ?, progress_count = ?,
				progress_total = ?, logs_json = ?, error_message = ?, completed_at = ?
			WHERE id = ?
		`, r.Status, string(counterJSON), r.CurrentStep, r.ProgressCount, progressTotal,
			string(logsJSON), r.ErrorMessage, nullableTime(r.CompletedAt), r.ID)
	}
	if err != nil {
		return fmt.Errorf("writing run %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the Run with the given id.
func (s *RunStorage) Get(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, kind, source, status, counters_json, current_step, progress_count,
			progress_total, logs_json, error_message, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}
	return r, nil
}
