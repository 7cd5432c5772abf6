package drift

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

// Generator renders a comparative HTML report over the run's snapshot. It
// reads the same persisted snapshot as the suite and can run alongside it.
type Generator struct {
	store         objectstore.Store
	reportsBucket string
	snapshots     *dataset.Assembler
	logger        *slog.Logger
}

func NewGenerator(store objectstore.Store, reportsBucket string, snapshots *dataset.Assembler, logger *slog.Logger) (*Generator, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(reportsBucket) == "" {
		return nil, fmt.Errorf("reports bucket is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot loader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, reportsBucket: reportsBucket, snapshots: snapshots, logger: logger}, nil
}

// Generate renders and persists the report, returning the object key.
func (g *Generator) Generate(ctx context.Context, ec domain.ExecutionContext) (string, error) {
	reference, current, manifest, err := g.snapshots.LoadSnapshot(ctx, ec.RunDate())
	if err != nil {
		return "", fmt.Errorf("load snapshot for %s: %w", ec.RunDate(), err)
	}

	page := buildReportPage(ec, reference, current, manifest)
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("render drift report: %w", err)
	}

	key := domain.DriftReportKey(ec.RunDate())
	if err := g.store.Put(ctx, g.reportsBucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/html"); err != nil {
		return "", fmt.Errorf("persist drift report: %w", err)
	}

	g.logger.Info("drift report generated",
		"run_date", ec.RunDate(),
		"key", key,
		"reference_rows", reference.Len(),
		"current_rows", current.Len())
	return key, nil
}

type numericalSummary struct {
	Column        string
	ReferenceMean string
	ReferenceStd  string
	CurrentMean   string
	CurrentStd    string
}

type categoryShare struct {
	Value          string
	ReferenceShare string
	CurrentShare   string
}

type categoricalSummary struct {
	Column string
	Top    []categoryShare
}

// regressionSummary compares the durations the model predicts in the current
// window against the reference target distribution.
type regressionSummary struct {
	ReferenceTargetMean  string
	ReferenceTargetStd   string
	CurrentPredictedMean string
	CurrentPredictedStd  string
	MeanShift            string
	MedianShift          string
}

type reportPage struct {
	RunDate                string
	Epoch                  string
	ReferenceRows          int
	CurrentRows            int
	ReferenceSource        string
	CurrentIsReferenceCopy bool
	MalformedLogsSkipped   int
	ReferenceMissingShare  string
	CurrentMissingShare    string
	Regression             regressionSummary
	Numerical              []numericalSummary
	Categorical            []categoricalSummary
}

func buildReportPage(ec domain.ExecutionContext, reference, current dataset.Table, manifest dataset.SnapshotManifest) reportPage {
	page := reportPage{
		RunDate:                ec.RunDate(),
		Epoch:                  ec.Epoch.String(),
		ReferenceRows:          reference.Len(),
		CurrentRows:            current.Len(),
		ReferenceSource:        manifest.ReferenceSource,
		CurrentIsReferenceCopy: manifest.CurrentIsReferenceCopy,
		MalformedLogsSkipped:   manifest.MalformedLogsSkipped,
		ReferenceMissingShare:  fmt.Sprintf("%.4f", reference.MissingShare()),
		CurrentMissingShare:    fmt.Sprintf("%.4f", current.MissingShare()),
	}
	page.Regression = summarizeRegression(reference, current)
	for _, column := range []string{dataset.ColTripDistance, dataset.ColTarget} {
		page.Numerical = append(page.Numerical, summarizeNumerical(reference, current, column))
	}
	for _, column := range []string{dataset.ColPULocation, dataset.ColDOLocation} {
		page.Categorical = append(page.Categorical, summarizeCategorical(reference, current, column))
	}
	return page
}

func summarizeNumerical(reference, current dataset.Table, column string) numericalSummary {
	ref, _ := reference.Numerical(column)
	cur, _ := current.Numerical(column)
	return numericalSummary{
		Column:        column,
		ReferenceMean: fmt.Sprintf("%.3f", stat.Mean(ref, nil)),
		ReferenceStd:  fmt.Sprintf("%.3f", stat.StdDev(ref, nil)),
		CurrentMean:   fmt.Sprintf("%.3f", stat.Mean(cur, nil)),
		CurrentStd:    fmt.Sprintf("%.3f", stat.StdDev(cur, nil)),
	}
}

func summarizeRegression(reference, current dataset.Table) regressionSummary {
	ref, _ := reference.Numerical(dataset.ColTarget)
	cur, _ := current.Numerical(dataset.ColTarget)

	refMean := stat.Mean(ref, nil)
	curMean := stat.Mean(cur, nil)
	return regressionSummary{
		ReferenceTargetMean:  fmt.Sprintf("%.3f", refMean),
		ReferenceTargetStd:   fmt.Sprintf("%.3f", stat.StdDev(ref, nil)),
		CurrentPredictedMean: fmt.Sprintf("%.3f", curMean),
		CurrentPredictedStd:  fmt.Sprintf("%.3f", stat.StdDev(cur, nil)),
		MeanShift:            fmt.Sprintf("%+.3f", curMean-refMean),
		MedianShift:          fmt.Sprintf("%+.3f", median(cur)-median(ref)),
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

const topCategories = 10

func summarizeCategorical(reference, current dataset.Table, column string) categoricalSummary {
	ref, _ := reference.Categorical(column)
	cur, _ := current.Categorical(column)

	refShares := shares(ref)
	curShares := shares(cur)

	values := make([]string, 0, len(refShares))
	for v := range refShares {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if refShares[values[i]] != refShares[values[j]] {
			return refShares[values[i]] > refShares[values[j]]
		}
		return values[i] < values[j]
	})
	if len(values) > topCategories {
		values = values[:topCategories]
	}

	summary := categoricalSummary{Column: column}
	for _, v := range values {
		summary.Top = append(summary.Top, categoryShare{
			Value:          v,
			ReferenceShare: fmt.Sprintf("%.4f", refShares[v]),
			CurrentShare:   fmt.Sprintf("%.4f", curShares[v]),
		})
	}
	return summary
}

func shares(values []string) map[string]float64 {
	out := make(map[string]float64)
	if len(values) == 0 {
		return out
	}
	for _, v := range values {
		out[v]++
	}
	total := float64(len(values))
	for v := range out {
		out[v] /= total
	}
	return out
}

var reportTemplate = template.Must(template.New("drift-report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Drift Report {{.RunDate}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #1a1a2e; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #cbd5e1; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f1f5f9; }
.badge { display: inline-block; padding: 0.15rem 0.5rem; border-radius: 0.25rem; background: #fef3c7; }
</style>
</head>
<body>
<h1>Reference vs. Current Drift Report</h1>
<table>
<tr><th>Run date</th><td>{{.RunDate}}</td></tr>
<tr><th>Data epoch</th><td>{{.Epoch}}</td></tr>
<tr><th>Reference rows</th><td>{{.ReferenceRows}} ({{.ReferenceSource}})</td></tr>
<tr><th>Current rows</th><td>{{.CurrentRows}}</td></tr>
<tr><th>Malformed logs skipped</th><td>{{.MalformedLogsSkipped}}</td></tr>
<tr><th>Missing-value share</th><td>reference {{.ReferenceMissingShare}}, current {{.CurrentMissingShare}}</td></tr>
</table>
{{if .CurrentIsReferenceCopy}}
<p class="badge">No prediction traffic in the current window: the current dataset is a copy of the reference.</p>
{{end}}
<h2>Regression quality</h2>
<table>
<tr><th>Reference target mean</th><td>{{.Regression.ReferenceTargetMean}}</td></tr>
<tr><th>Reference target std</th><td>{{.Regression.ReferenceTargetStd}}</td></tr>
<tr><th>Current predicted mean</th><td>{{.Regression.CurrentPredictedMean}}</td></tr>
<tr><th>Current predicted std</th><td>{{.Regression.CurrentPredictedStd}}</td></tr>
<tr><th>Mean shift</th><td>{{.Regression.MeanShift}}</td></tr>
<tr><th>Median shift</th><td>{{.Regression.MedianShift}}</td></tr>
</table>
<h2>Numerical columns</h2>
<table>
<tr><th>Column</th><th>Reference mean</th><th>Reference std</th><th>Current mean</th><th>Current std</th></tr>
{{range .Numerical}}
<tr><td>{{.Column}}</td><td>{{.ReferenceMean}}</td><td>{{.ReferenceStd}}</td><td>{{.CurrentMean}}</td><td>{{.CurrentStd}}</td></tr>
{{end}}
</table>
<h2>Categorical columns</h2>
{{range .Categorical}}
<h3>{{.Column}}</h3>
<table>
<tr><th>Value</th><th>Reference share</th><th>Current share</th></tr>
{{range .Top}}
<tr><td>{{.Value}}</td><td>{{.ReferenceShare}}</td><td>{{.CurrentShare}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))
