// Package postgres persists the run ledger in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch-labs/driftwatch-go/internal/repo"
)

type TaskExecutionStore struct {
	db DB
}

const (
	insertTaskExecutionQuery = `INSERT INTO task_executions (
		task_execution_id,
		run_id,
		run_date,
		task_name,
		attempt,
		status,
		started_at,
		finished_at,
		error_message,
		detail
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (run_id, task_name, attempt) DO NOTHING
	RETURNING task_execution_id, run_id, run_date, task_name, attempt, status, started_at, finished_at, error_message, detail`

	selectTaskExecutionQuery = `SELECT task_execution_id, run_id, run_date, task_name, attempt, status, started_at, finished_at, error_message, detail
	 FROM task_executions
	 WHERE run_id = $1 AND task_name = $2 AND attempt = $3`

	listTaskExecutionsByRunQuery = `SELECT task_execution_id, run_id, run_date, task_name, attempt, status, started_at, finished_at, error_message, detail
	 FROM task_executions
	 WHERE run_id = $1
	 ORDER BY started_at ASC, task_name ASC, attempt ASC`
)

func NewTaskExecutionStore(db DB) *TaskExecutionStore {
	if db == nil {
		return nil
	}
	return &TaskExecutionStore{db: db}
}

func (s *TaskExecutionStore) InsertAttempt(ctx context.Context, record repo.TaskExecutionRecord) (repo.TaskExecutionRecord, bool, error) {
	if s == nil || s.db == nil {
		return repo.TaskExecutionRecord{}, false, fmt.Errorf("task execution store not initialized")
	}
	runID := strings.TrimSpace(record.RunID)
	runDate := strings.TrimSpace(record.RunDate)
	taskName := strings.TrimSpace(record.TaskName)
	status := strings.TrimSpace(record.Status)

	if runID == "" {
		return repo.TaskExecutionRecord{}, false, fmt.Errorf("run id is required")
	}
	if runDate == "" {
		return repo.TaskExecutionRecord{}, false, fmt.Errorf("run date is required")
	}
	if taskName == "" {
		return repo.TaskExecutionRecord{}, false, fmt.Errorf("task name is required")
	}
	if record.Attempt < 1 {
		return repo.TaskExecutionRecord{}, false, fmt.Errorf("attempt must be >= 1")
	}
	if status == "" {
		return repo.TaskExecutionRecord{}, false, fmt.Errorf("status is required")
	}

	startedAt := record.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	var finishedAt sql.NullTime
	if record.FinishedAt != nil && !record.FinishedAt.IsZero() {
		finishedAt = sql.NullTime{Time: record.FinishedAt.UTC(), Valid: true}
	}

	id := record.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	var inserted repo.TaskExecutionRecord
	var errorMessage sql.NullString
	err := s.db.QueryRowContext(
		ctx,
		insertTaskExecutionQuery,
		id,
		runID,
		runDate,
		taskName,
		record.Attempt,
		status,
		startedAt,
		finishedAt,
		nullIfEmpty(record.ErrorMessage),
		record.Detail,
	).Scan(
		&inserted.ID,
		&inserted.RunID,
		&inserted.RunDate,
		&inserted.TaskName,
		&inserted.Attempt,
		&inserted.Status,
		&inserted.StartedAt,
		&finishedAt,
		&errorMessage,
		&inserted.Detail,
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return repo.TaskExecutionRecord{}, false, fmt.Errorf("insert task execution: %w", err)
		}
		existing, err := s.getAttempt(ctx, runID, taskName, record.Attempt)
		if err != nil {
			return repo.TaskExecutionRecord{}, false, err
		}
		return existing, false, nil
	}

	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		inserted.FinishedAt = &t
	}
	inserted.ErrorMessage = strings.TrimSpace(errorMessage.String)
	return inserted, true, nil
}

func (s *TaskExecutionStore) ListByRun(ctx context.Context, runID string) ([]repo.TaskExecutionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("task execution store not initialized")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}

	rows, err := s.db.QueryContext(ctx, listTaskExecutionsByRunQuery, runID)
	if err != nil {
		return nil, fmt.Errorf("list task executions: %w", err)
	}
	defer rows.Close()

	records := make([]repo.TaskExecutionRecord, 0)
	for rows.Next() {
		record, err := scanTaskExecution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list task executions: %w", err)
	}
	return records, nil
}

func (s *TaskExecutionStore) getAttempt(ctx context.Context, runID, taskName string, attempt int) (repo.TaskExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx, selectTaskExecutionQuery, runID, taskName, attempt)
	return scanTaskExecution(row)
}

type taskExecutionScanner interface {
	Scan(dest ...any) error
}

func scanTaskExecution(scanner taskExecutionScanner) (repo.TaskExecutionRecord, error) {
	var record repo.TaskExecutionRecord
	var finishedAt sql.NullTime
	var errorMessage sql.NullString
	if err := scanner.Scan(
		&record.ID,
		&record.RunID,
		&record.RunDate,
		&record.TaskName,
		&record.Attempt,
		&record.Status,
		&record.StartedAt,
		&finishedAt,
		&errorMessage,
		&record.Detail,
	); err != nil {
		return repo.TaskExecutionRecord{}, handleNotFound(err)
	}
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		record.FinishedAt = &t
	}
	record.ErrorMessage = strings.TrimSpace(errorMessage.String)
	return record, nil
}
