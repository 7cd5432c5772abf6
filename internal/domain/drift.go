package domain

import (
	"errors"
	"fmt"
	"strings"
)

// BranchDecision selects exactly one terminal workflow action. The workflow
// driver matches on it explicitly; it is never dispatched by string lookup.
type BranchDecision int

const (
	NoDrift BranchDecision = iota
	DriftDetected
)

func (d BranchDecision) String() string {
	switch d {
	case NoDrift:
		return "no-drift"
	case DriftDetected:
		return "drift-detected"
	default:
		return fmt.Sprintf("branch-decision(%d)", int(d))
	}
}

// DecideBranch is a total function of the suite verdict.
func DecideBranch(allPassed bool) BranchDecision {
	if allPassed {
		return NoDrift
	}
	return DriftDetected
}

const (
	DriftTestPassed = "passed"
	DriftTestFailed = "failed"
)

// DriftTestOutcome is one statistical test's result within the suite.
type DriftTestOutcome struct {
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	Description string         `json:"description,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

type DriftSummary struct {
	AllPassed bool `json:"all_passed"`
	// CurrentIsReferenceCopy flags a degenerate current window: no prediction
	// logs were observed, so the reference dataset stood in for current and a
	// passing feature-drift verdict does not imply a monitored period.
	CurrentIsReferenceCopy bool `json:"current_is_reference_copy,omitempty"`
}

// DriftTestResult is computed once per run and immutable; the branch decision
// and the persisted record share the same all_passed boolean.
type DriftTestResult struct {
	Summary DriftSummary       `json:"summary"`
	Tests   []DriftTestOutcome `json:"tests"`
}

func (r DriftTestResult) Validate() error {
	if len(r.Tests) == 0 {
		return errors.New("tests must be non-empty")
	}
	allPassed := true
	for i, test := range r.Tests {
		if strings.TrimSpace(test.Name) == "" {
			return fmt.Errorf("tests[%d].name is required", i)
		}
		switch test.Status {
		case DriftTestPassed:
		case DriftTestFailed:
			allPassed = false
		default:
			return fmt.Errorf("tests[%d].status unsupported: %q", i, test.Status)
		}
	}
	if r.Summary.AllPassed != allPassed {
		return errors.New("summary.all_passed disagrees with per-test outcomes")
	}
	return nil
}

// Decision derives the branch selector from the persisted verdict.
func (r DriftTestResult) Decision() BranchDecision {
	return DecideBranch(r.Summary.AllPassed)
}
