package main

import (
	"testing"
)

func TestBuildPlanTopology(t *testing.T) {
	p := &pipeline{}
	plan, err := p.buildPlan()
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if len(plan.Tasks) != 8 {
		t.Fatalf("plan has %d tasks, want 8", len(plan.Tasks))
	}

	successors := plan.Successors(taskAssembleDatasets)
	if len(successors) != 2 {
		t.Fatalf("assemble successors=%v, want drift check and report", successors)
	}
	branchTargets := plan.Successors(taskDriftCheck)
	if len(branchTargets) != 2 || branchTargets[0] != taskRaiseDriftAlert || branchTargets[1] != taskRecordNoDrift {
		t.Fatalf("branch targets=%v", branchTargets)
	}

	// The three checks are independent roots.
	for _, name := range []string{taskDataQuality, taskModelPerformance, taskServiceHealth} {
		if deps := plan.Dependencies(name); len(deps) != 0 {
			t.Fatalf("%s has dependencies %v, want none", name, deps)
		}
	}
}
