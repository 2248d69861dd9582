package sqlite

import (
	"context"
	"strings"

	"github.com/fwojciec/newsgrab"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ newsgrab.RunService = (*RunService)(nil)

// RunService implements newsgrab.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores a finished run. An empty ID is assigned a new UUID.
func (s *RunService) CreateRun(ctx context.Context, run *newsgrab.RunRecord) error {
	if strings.TrimSpace(run.Source) == "" {
		return newsgrab.Errorf(newsgrab.EINVALID, "run source required")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, status, found, processed, succeeded, failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, string(run.Status), run.Found, run.Processed, run.Succeeded, run.Failed,
		run.Error, formatTime(run.StartedAt), formatTime(run.FinishedAt))

	return err
}

// FindRuns retrieves runs matching the filter, newest first.
func (s *RunService) FindRuns(ctx context.Context, filter newsgrab.RunFilter) ([]*newsgrab.RunRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, source, status, found, processed, succeeded, failed, error, started_at, finished_at FROM runs WHERE 1=1")

	if filter.Source != nil {
		query.WriteString(" AND source = ?")
		args = append(args, *filter.Source)
	}
	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendLimit(&query, &args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*newsgrab.RunRecord, 0)
	for rows.Next() {
		var run newsgrab.RunRecord
		var status, startedAt, finishedAt string

		if err := rows.Scan(&run.ID, &run.Source, &status, &run.Found, &run.Processed,
			&run.Succeeded, &run.Failed, &run.Error, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Status = newsgrab.RunStatus(status)

		if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
