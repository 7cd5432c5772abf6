package domain

import (
	"fmt"
	"strings"
	"time"
)

// LookbackDays offsets a trigger timestamp back onto the historical data epoch
// the run evaluates. Keeping this fixed makes epoch resolution deterministic, so
// backfill replays of the same trigger timestamp land on the same epoch.
const LookbackDays = 730

// Epoch is the (year, month) of trip data a workflow run evaluates.
type Epoch struct {
	Year  int
	Month time.Month
}

// ResolveEpoch maps a trigger timestamp to its data epoch. Pure function; every
// component of one run must derive the epoch from the same trigger timestamp.
func ResolveEpoch(trigger time.Time) Epoch {
	data := trigger.UTC().AddDate(0, 0, -LookbackDays)
	return Epoch{Year: data.Year(), Month: data.Month()}
}

func (e Epoch) String() string {
	return fmt.Sprintf("%04d-%02d", e.Year, int(e.Month))
}

func (e Epoch) Validate() error {
	if e.Year < 1970 || e.Year > 9999 {
		return fmt.Errorf("epoch year out of range: %d", e.Year)
	}
	if e.Month < time.January || e.Month > time.December {
		return fmt.Errorf("epoch month out of range: %d", int(e.Month))
	}
	return nil
}

// ExecutionContext identifies one workflow run. Immutable after creation.
type ExecutionContext struct {
	RunID       string
	TriggerTime time.Time
	Epoch       Epoch
}

func NewExecutionContext(runID string, trigger time.Time) (ExecutionContext, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ExecutionContext{}, fmt.Errorf("run id is required")
	}
	if trigger.IsZero() {
		return ExecutionContext{}, fmt.Errorf("trigger time is required")
	}
	return ExecutionContext{
		RunID:       runID,
		TriggerTime: trigger.UTC(),
		Epoch:       ResolveEpoch(trigger),
	}, nil
}

// RunDate is the date partition key shared by all artifacts of one run.
func (c ExecutionContext) RunDate() string {
	return c.TriggerTime.UTC().Format("2006-01-02")
}
