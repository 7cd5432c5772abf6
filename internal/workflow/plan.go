// Package workflow executes the monitoring task graph: a small DAG engine
// with retries, dependency-failure skips, and typed branch selection.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
)

// DefaultMaxAttempts gives every task one retry.
const DefaultMaxAttempts = 2

// Action is a regular task body.
type Action func(ctx context.Context, ec domain.ExecutionContext) error

// BranchAction selects which direct successors run. Successors not returned
// are skipped without being treated as failures.
type BranchAction func(ctx context.Context, ec domain.ExecutionContext) ([]string, error)

// Task is one node of the plan. Exactly one of Action or Branch is set.
type Task struct {
	Name        string
	Action      Action
	Branch      BranchAction
	MaxAttempts int
}

type Edge struct {
	From string
	To   string
}

// Plan is a validated task graph with tasks in deterministic topological
// order.
type Plan struct {
	Tasks []Task
	Edges []Edge
}

// BuildPlan validates the graph and orders its tasks deterministically.
func BuildPlan(tasks []Task, edges []Edge) (Plan, error) {
	if len(tasks) == 0 {
		return Plan{}, fmt.Errorf("plan requires at least one task")
	}

	byName := make(map[string]Task, len(tasks))
	for _, task := range tasks {
		name := strings.TrimSpace(task.Name)
		if name == "" {
			return Plan{}, fmt.Errorf("task name is required")
		}
		if _, ok := byName[name]; ok {
			return Plan{}, fmt.Errorf("duplicate task %q", name)
		}
		if (task.Action == nil) == (task.Branch == nil) {
			return Plan{}, fmt.Errorf("task %q must set exactly one of Action or Branch", name)
		}
		if task.MaxAttempts == 0 {
			task.MaxAttempts = DefaultMaxAttempts
		}
		if task.MaxAttempts < 1 {
			return Plan{}, fmt.Errorf("task %q: max attempts must be >= 1", name)
		}
		task.Name = name
		byName[name] = task
	}

	for _, edge := range edges {
		if _, ok := byName[edge.From]; !ok {
			return Plan{}, fmt.Errorf("edge references unknown task %q", edge.From)
		}
		if _, ok := byName[edge.To]; !ok {
			return Plan{}, fmt.Errorf("edge references unknown task %q", edge.To)
		}
	}

	ordered, err := topoSort(byName, edges)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Tasks: ordered, Edges: edges}, nil
}

// Successors returns the direct successors of a task, sorted.
func (p Plan) Successors(name string) []string {
	out := make([]string, 0)
	for _, edge := range p.Edges {
		if edge.From == name {
			out = append(out, edge.To)
		}
	}
	sort.Strings(out)
	return out
}

// Dependencies returns the direct dependencies of a task, sorted.
func (p Plan) Dependencies(name string) []string {
	out := make([]string, 0)
	for _, edge := range p.Edges {
		if edge.To == name {
			out = append(out, edge.From)
		}
	}
	sort.Strings(out)
	return out
}

func topoSort(byName map[string]Task, edges []Edge) ([]Task, error) {
	inDegree := make(map[string]int, len(byName))
	adj := make(map[string][]string, len(byName))
	for name := range byName {
		inDegree[name] = 0
	}
	for _, edge := range edges {
		adj[edge.From] = append(adj[edge.From], edge.To)
		inDegree[edge.To]++
	}

	ready := make([]string, 0, len(byName))
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]Task, 0, len(byName))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])
		for _, neighbor := range adj[name] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				ready = append(ready, neighbor)
				sort.Strings(ready)
			}
		}
	}

	if len(ordered) != len(byName) {
		return nil, fmt.Errorf("dependency graph contains a cycle")
	}
	return ordered, nil
}
