package workflow

import (
	"context"
	"testing"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
)

func noop(ctx context.Context, ec domain.ExecutionContext) error { return nil }

func TestBuildPlanDeterministicOrder(t *testing.T) {
	tasks := []Task{
		{Name: "c", Action: noop},
		{Name: "a", Action: noop},
		{Name: "b", Action: noop},
		{Name: "d", Action: noop},
	}
	edges := []Edge{
		{From: "a", To: "c"},
		{From: "b", To: "c"},
		{From: "c", To: "d"},
	}

	plan, err := BuildPlan(tasks, edges)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	got := make([]string, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		got = append(got, task.Name)
	}
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order=%v, want %v", got, want)
		}
	}
}

func TestBuildPlanRejectsCycle(t *testing.T) {
	tasks := []Task{
		{Name: "a", Action: noop},
		{Name: "b", Action: noop},
	}
	edges := []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
	}
	if _, err := BuildPlan(tasks, edges); err == nil {
		t.Fatal("cycle accepted")
	}
}

func TestBuildPlanRejectsDuplicateNames(t *testing.T) {
	tasks := []Task{
		{Name: "a", Action: noop},
		{Name: "a", Action: noop},
	}
	if _, err := BuildPlan(tasks, nil); err == nil {
		t.Fatal("duplicate task name accepted")
	}
}

func TestBuildPlanRejectsUnknownEdgeTarget(t *testing.T) {
	tasks := []Task{{Name: "a", Action: noop}}
	edges := []Edge{{From: "a", To: "ghost"}}
	if _, err := BuildPlan(tasks, edges); err == nil {
		t.Fatal("edge to unknown task accepted")
	}
}

func TestBuildPlanRequiresExactlyOneBody(t *testing.T) {
	if _, err := BuildPlan([]Task{{Name: "a"}}, nil); err == nil {
		t.Fatal("task without a body accepted")
	}
	both := Task{
		Name:   "a",
		Action: noop,
		Branch: func(ctx context.Context, ec domain.ExecutionContext) ([]string, error) { return nil, nil },
	}
	if _, err := BuildPlan([]Task{both}, nil); err == nil {
		t.Fatal("task with both bodies accepted")
	}
}

func TestPlanSuccessorsAndDependencies(t *testing.T) {
	plan, err := BuildPlan(
		[]Task{{Name: "a", Action: noop}, {Name: "b", Action: noop}, {Name: "c", Action: noop}},
		[]Edge{{From: "a", To: "b"}, {From: "a", To: "c"}},
	)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	successors := plan.Successors("a")
	if len(successors) != 2 || successors[0] != "b" || successors[1] != "c" {
		t.Fatalf("successors=%v", successors)
	}
	deps := plan.Dependencies("b")
	if len(deps) != 1 || deps[0] != "a" {
		t.Fatalf("dependencies=%v", deps)
	}
}
