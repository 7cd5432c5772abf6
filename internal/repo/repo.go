// Package repo defines the persistence contracts for the monitoring run
// ledger.
package repo

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing ledger row.
var ErrNotFound = errors.New("record not found")

// TaskExecutionRecord is one attempt of one workflow task. The ledger is
// append-only; (run_id, task_name, attempt) identifies an attempt and repeated
// inserts are no-ops.
type TaskExecutionRecord struct {
	ID           string
	RunID        string
	RunDate      string
	TaskName     string
	Attempt      int
	Status       string
	StartedAt    time.Time
	FinishedAt   *time.Time
	ErrorMessage string
	Detail       []byte
}

// TaskExecutionRepository records workflow task attempts.
type TaskExecutionRepository interface {
	// InsertAttempt records one attempt idempotently. The boolean reports
	// whether the row was created by this call.
	InsertAttempt(ctx context.Context, record TaskExecutionRecord) (TaskExecutionRecord, bool, error)
	ListByRun(ctx context.Context, runID string) ([]TaskExecutionRecord, error)
}
