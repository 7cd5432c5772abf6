package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/repo"
)

const (
	StatusSucceeded = "Succeeded"
	StatusFailed    = "Failed"
	StatusRetried   = "Retried"
	StatusSkipped   = "Skipped"

	SkipReasonDependencyFailed = "dependency_failed"
	SkipReasonBranchNotTaken   = "branch_not_taken"

	DefaultRetryDelay = 30 * time.Second
)

type TaskResult struct {
	Name       string
	Attempts   int
	Status     string
	SkipReason string
	Error      string
}

type RunResult struct {
	Status string
	Tasks  []TaskResult
}

func (r RunResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Runner executes a plan wave by wave: every task whose dependencies have
// succeeded runs concurrently with its peers. Failed tasks get one fixed-delay
// retry per extra attempt; tasks downstream of a failure are skipped; branch
// tasks skip the successors they did not select.
type Runner struct {
	ledger     repo.TaskExecutionRepository
	retryDelay time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner builds a runner. The ledger may be nil, in which case attempts are
// not recorded.
func NewRunner(ledger repo.TaskExecutionRepository, retryDelay time.Duration, logger *slog.Logger) *Runner {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{ledger: ledger, retryDelay: retryDelay, logger: logger, now: time.Now}
}

type taskState struct {
	status     string
	attempts   int
	skipReason string
	err        string
	deselected bool
}

// Run executes the plan for one execution context. The returned result lists
// every task in plan order; the run fails if any task failed or was skipped
// because a dependency failed.
func (r *Runner) Run(ctx context.Context, plan Plan, ec domain.ExecutionContext) (RunResult, error) {
	if len(plan.Tasks) == 0 {
		return RunResult{}, fmt.Errorf("plan has no tasks")
	}

	states := make(map[string]*taskState, len(plan.Tasks))
	for _, task := range plan.Tasks {
		states[task.Name] = &taskState{}
	}

	for {
		progressed := r.skipBlockedTasks(ctx, plan, ec, states)

		ready := make([]Task, 0)
		for _, task := range plan.Tasks {
			if states[task.Name].status != "" {
				continue
			}
			if r.dependenciesSucceeded(plan, task.Name, states) {
				ready = append(ready, task)
			}
		}
		if len(ready) == 0 {
			if !progressed {
				break
			}
			continue
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, task := range ready {
			wg.Add(1)
			go func(task Task) {
				defer wg.Done()
				state := r.executeTask(ctx, plan, task, ec, states, &mu)
				mu.Lock()
				states[task.Name] = state
				mu.Unlock()
			}(task)
		}
		wg.Wait()
	}

	return r.buildResult(plan, states), nil
}

// skipBlockedTasks marks tasks that can never run: a dependency reached a
// non-success terminal status, or a branch parent did not select them.
func (r *Runner) skipBlockedTasks(ctx context.Context, plan Plan, ec domain.ExecutionContext, states map[string]*taskState) bool {
	progressed := false
	for _, task := range plan.Tasks {
		state := states[task.Name]
		if state.status != "" {
			continue
		}

		if state.deselected {
			state.status = StatusSkipped
			state.skipReason = SkipReasonBranchNotTaken
			r.recordAttempt(ctx, ec, task.Name, 1, StatusSkipped, "", map[string]any{"skip_reason": SkipReasonBranchNotTaken})
			r.logger.Info("task skipped", "task", task.Name, "reason", SkipReasonBranchNotTaken)
			progressed = true
			continue
		}

		for _, dep := range plan.Dependencies(task.Name) {
			depState := states[dep]
			if depState.status == "" || depState.status == StatusSucceeded {
				continue
			}
			state.status = StatusSkipped
			state.skipReason = SkipReasonDependencyFailed
			r.recordAttempt(ctx, ec, task.Name, 1, StatusSkipped, "", map[string]any{"skip_reason": SkipReasonDependencyFailed, "dependency": dep})
			r.logger.Warn("task skipped", "task", task.Name, "reason", SkipReasonDependencyFailed, "dependency", dep)
			progressed = true
			break
		}
	}
	return progressed
}

func (r *Runner) dependenciesSucceeded(plan Plan, name string, states map[string]*taskState) bool {
	for _, dep := range plan.Dependencies(name) {
		if states[dep].status != StatusSucceeded {
			return false
		}
	}
	return true
}

func (r *Runner) executeTask(ctx context.Context, plan Plan, task Task, ec domain.ExecutionContext, states map[string]*taskState, mu *sync.Mutex) *taskState {
	state := &taskState{}
	for attempt := 1; attempt <= task.MaxAttempts; attempt++ {
		state.attempts = attempt
		started := r.now().UTC()

		var selected []string
		var err error
		if task.Branch != nil {
			selected, err = task.Branch(ctx, ec)
		} else {
			err = task.Action(ctx, ec)
		}

		if err == nil {
			state.status = StatusSucceeded
			r.recordFinishedAttempt(ctx, ec, task.Name, attempt, StatusSucceeded, "", started, nil)
			r.logger.Info("task succeeded", "task", task.Name, "attempt", attempt)
			if task.Branch != nil {
				r.applyBranch(ctx, plan, task, ec, selected, states, mu)
			}
			return state
		}

		if attempt < task.MaxAttempts {
			state.status = ""
			r.recordFinishedAttempt(ctx, ec, task.Name, attempt, StatusRetried, err.Error(), started, nil)
			r.logger.Warn("task failed, retrying", "task", task.Name, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				state.status = StatusFailed
				state.err = ctx.Err().Error()
				return state
			case <-time.After(r.retryDelay):
			}
			continue
		}

		state.status = StatusFailed
		state.err = err.Error()
		r.recordFinishedAttempt(ctx, ec, task.Name, attempt, StatusFailed, err.Error(), started, nil)
		r.logger.Error("task failed, retries exhausted", "task", task.Name, "attempt", attempt, "error", err)
	}
	return state
}

// applyBranch marks the successors the branch did not select.
func (r *Runner) applyBranch(ctx context.Context, plan Plan, task Task, ec domain.ExecutionContext, selected []string, states map[string]*taskState, mu *sync.Mutex) {
	chosen := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		chosen[name] = struct{}{}
	}
	mu.Lock()
	defer mu.Unlock()
	for _, successor := range plan.Successors(task.Name) {
		if _, ok := chosen[successor]; ok {
			continue
		}
		states[successor].deselected = true
	}
	r.logger.Info("branch decided", "task", task.Name, "selected", selected)
}

func (r *Runner) buildResult(plan Plan, states map[string]*taskState) RunResult {
	overall := StatusSucceeded
	results := make([]TaskResult, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		state := states[task.Name]
		status := state.status
		if status == "" {
			status = StatusFailed
		}
		if status == StatusFailed || (status == StatusSkipped && state.skipReason == SkipReasonDependencyFailed) {
			overall = StatusFailed
		}
		results = append(results, TaskResult{
			Name:       task.Name,
			Attempts:   max(1, state.attempts),
			Status:     status,
			SkipReason: state.skipReason,
			Error:      state.err,
		})
	}
	return RunResult{Status: overall, Tasks: results}
}

func (r *Runner) recordAttempt(ctx context.Context, ec domain.ExecutionContext, taskName string, attempt int, status, errorMessage string, detail map[string]any) {
	r.recordFinishedAttempt(ctx, ec, taskName, attempt, status, errorMessage, r.now().UTC(), detail)
}

func (r *Runner) recordFinishedAttempt(ctx context.Context, ec domain.ExecutionContext, taskName string, attempt int, status, errorMessage string, started time.Time, detail map[string]any) {
	if r.ledger == nil {
		return
	}
	var raw []byte
	if detail != nil {
		raw, _ = json.Marshal(detail)
	}
	finished := r.now().UTC()
	record := repo.TaskExecutionRecord{
		RunID:        ec.RunID,
		RunDate:      ec.RunDate(),
		TaskName:     taskName,
		Attempt:      attempt,
		Status:       status,
		StartedAt:    started,
		FinishedAt:   &finished,
		ErrorMessage: errorMessage,
		Detail:       raw,
	}
	if _, _, err := r.ledger.InsertAttempt(ctx, record); err != nil {
		r.logger.Error("record task attempt", "task", taskName, "attempt", attempt, "error", err)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
