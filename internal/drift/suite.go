package drift

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const (
	TestDataDrift       = "data_drift"
	TestShareOfMissing  = "share_of_missing_values"
	DefaultSignificance = 0.05
	DefaultMissingSlack = 0.1
)

// Options tune the suite thresholds and column mapping. Zero values fall back
// to the defaults.
type Options struct {
	// Significance is the per-column p-value threshold below which a column
	// counts as drifted.
	Significance float64
	// MissingSlack is how far the current missing-value share may exceed the
	// reference share before the test fails.
	MissingSlack float64
	// Numerical and Categorical map dataset columns to their test family.
	Numerical   []string
	Categorical []string
}

func (o Options) withDefaults() Options {
	if o.Significance <= 0 {
		o.Significance = DefaultSignificance
	}
	if o.MissingSlack <= 0 {
		o.MissingSlack = DefaultMissingSlack
	}
	if len(o.Numerical) == 0 {
		o.Numerical = []string{dataset.ColTripDistance, dataset.ColTarget}
	}
	if len(o.Categorical) == 0 {
		o.Categorical = []string{dataset.ColPULocation, dataset.ColDOLocation}
	}
	return o
}

// Runner executes the drift test suite over a persisted snapshot and records
// the verdict. The result is computed once per run; the branch decision and
// the persisted record always share the same all_passed value.
type Runner struct {
	store     objectstore.Store
	bucket    string
	snapshots *dataset.Assembler
	opts      Options
	logger    *slog.Logger
}

func NewRunner(store objectstore.Store, bucket string, snapshots *dataset.Assembler, opts Options, logger *slog.Logger) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot loader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, bucket: bucket, snapshots: snapshots, opts: opts.withDefaults(), logger: logger}, nil
}

// Run loads the run's snapshot, evaluates the suite, and persists the result
// regardless of verdict.
func (r *Runner) Run(ctx context.Context, ec domain.ExecutionContext) (domain.DriftTestResult, error) {
	reference, current, manifest, err := r.snapshots.LoadSnapshot(ctx, ec.RunDate())
	if err != nil {
		return domain.DriftTestResult{}, fmt.Errorf("load snapshot for %s: %w", ec.RunDate(), err)
	}

	result, err := Evaluate(reference, current, manifest, r.opts)
	if err != nil {
		return domain.DriftTestResult{}, err
	}

	if err := objectstore.PutJSON(ctx, r.store, r.bucket, domain.DriftResultsKey(ec.RunDate()), result); err != nil {
		return domain.DriftTestResult{}, fmt.Errorf("persist drift results: %w", err)
	}

	r.logger.Info("drift test suite completed",
		"run_date", ec.RunDate(),
		"all_passed", result.Summary.AllPassed,
		"decision", result.Decision().String(),
		"current_is_reference_copy", result.Summary.CurrentIsReferenceCopy)
	return result, nil
}

// Evaluate runs the suite over in-memory tables. Exposed for the report
// generator's summary section and for tests.
func Evaluate(reference, current dataset.Table, manifest dataset.SnapshotManifest, opts Options) (domain.DriftTestResult, error) {
	opts = opts.withDefaults()
	if reference.Len() == 0 || current.Len() == 0 {
		return domain.DriftTestResult{}, fmt.Errorf("reference and current datasets must be non-empty")
	}

	dataDrift, err := evaluateDataDrift(reference, current, opts)
	if err != nil {
		return domain.DriftTestResult{}, err
	}
	missing := evaluateMissingShare(reference, current, opts.MissingSlack)

	tests := []domain.DriftTestOutcome{dataDrift, missing}
	allPassed := true
	for _, test := range tests {
		if test.Status != domain.DriftTestPassed {
			allPassed = false
		}
	}

	result := domain.DriftTestResult{
		Summary: domain.DriftSummary{
			AllPassed:              allPassed,
			CurrentIsReferenceCopy: manifest.CurrentIsReferenceCopy,
		},
		Tests: tests,
	}
	if err := result.Validate(); err != nil {
		return domain.DriftTestResult{}, err
	}
	return result, nil
}

// evaluateDataDrift tests every mapped column and fails if any single column
// drifted.
func evaluateDataDrift(reference, current dataset.Table, opts Options) (domain.DriftTestOutcome, error) {
	type columnTest struct {
		name string
		run  func() (TestStat, error)
	}
	tests := make([]columnTest, 0, len(opts.Numerical)+len(opts.Categorical))
	for _, column := range opts.Numerical {
		tests = append(tests, columnTest{column, numericalTest(reference, current, column)})
	}
	for _, column := range opts.Categorical {
		tests = append(tests, columnTest{column, categoricalTest(reference, current, column)})
	}

	details := make(map[string]any, len(tests)+1)
	drifted := 0
	for _, test := range tests {
		ts, err := test.run()
		if err != nil {
			return domain.DriftTestOutcome{}, fmt.Errorf("column %s: %w", test.name, err)
		}
		columnDrifted := ts.PValue < opts.Significance
		if columnDrifted {
			drifted++
		}
		details[test.name] = map[string]any{
			"statistic": ts.Statistic,
			"p_value":   ts.PValue,
			"drifted":   columnDrifted,
		}
	}
	details["drifted_columns"] = drifted

	status := domain.DriftTestPassed
	if drifted > 0 {
		status = domain.DriftTestFailed
	}
	return domain.DriftTestOutcome{
		Name:        TestDataDrift,
		Status:      status,
		Description: fmt.Sprintf("%d of %d columns drifted at significance %g", drifted, len(tests), opts.Significance),
		Details:     details,
	}, nil
}

func numericalTest(reference, current dataset.Table, column string) func() (TestStat, error) {
	return func() (TestStat, error) {
		ref, err := reference.Numerical(column)
		if err != nil {
			return TestStat{}, err
		}
		cur, err := current.Numerical(column)
		if err != nil {
			return TestStat{}, err
		}
		return KSTest(ref, cur)
	}
}

func categoricalTest(reference, current dataset.Table, column string) func() (TestStat, error) {
	return func() (TestStat, error) {
		ref, err := reference.Categorical(column)
		if err != nil {
			return TestStat{}, err
		}
		cur, err := current.Categorical(column)
		if err != nil {
			return TestStat{}, err
		}
		return ChiSquareTest(ref, cur)
	}
}

func evaluateMissingShare(reference, current dataset.Table, slack float64) domain.DriftTestOutcome {
	refShare := reference.MissingShare()
	curShare := current.MissingShare()
	limit := refShare + slack

	status := domain.DriftTestPassed
	if curShare > limit {
		status = domain.DriftTestFailed
	}
	return domain.DriftTestOutcome{
		Name:        TestShareOfMissing,
		Status:      status,
		Description: fmt.Sprintf("current missing share %.4f against limit %.4f", curShare, limit),
		Details: map[string]any{
			"reference_share": refShare,
			"current_share":   curShare,
			"limit":           limit,
		},
	}
}
