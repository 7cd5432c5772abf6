package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driftwatch-labs/driftwatch-go/internal/checks/health"
	"github.com/driftwatch-labs/driftwatch-go/internal/checks/performance"
	"github.com/driftwatch-labs/driftwatch-go/internal/checks/quality"
	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/drift"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/metrics"
	"github.com/driftwatch-labs/driftwatch-go/internal/workflow"
)

const (
	taskDataQuality      = "check_data_quality"
	taskModelPerformance = "check_model_performance"
	taskServiceHealth    = "check_service_health"
	taskAssembleDatasets = "assemble_datasets"
	taskDriftCheck       = "run_drift_check"
	taskDriftReport      = "generate_drift_report"
	taskRaiseDriftAlert  = "raise_drift_alert"
	taskRecordNoDrift    = "record_no_drift"
)

// pipeline bundles the task implementations of one monitoring run.
type pipeline struct {
	quality     *quality.Checker
	performance *performance.Checker
	health      *health.Checker
	assembler   *dataset.Assembler
	suite       *drift.Runner
	reporter    *drift.Generator
	sink        metrics.Sink
	logger      *slog.Logger
}

// buildPlan wires the monitoring DAG. The three checks are independent of the
// drift chain; the drift chain assembles once, then runs the suite and the
// report in parallel, and ends in exactly one of the two terminal tasks.
func (p *pipeline) buildPlan() (workflow.Plan, error) {
	tasks := []workflow.Task{
		{Name: taskDataQuality, Action: p.runDataQuality},
		{Name: taskModelPerformance, Action: p.runModelPerformance},
		{Name: taskServiceHealth, Action: p.runServiceHealth},
		{Name: taskAssembleDatasets, Action: p.runAssemble},
		{Name: taskDriftCheck, Branch: p.runDriftCheck},
		{Name: taskDriftReport, Action: p.runDriftReport},
		{Name: taskRaiseDriftAlert, Action: p.raiseDriftAlert},
		{Name: taskRecordNoDrift, Action: p.recordNoDrift},
	}
	edges := []workflow.Edge{
		{From: taskAssembleDatasets, To: taskDriftCheck},
		{From: taskAssembleDatasets, To: taskDriftReport},
		{From: taskDriftCheck, To: taskRaiseDriftAlert},
		{From: taskDriftCheck, To: taskRecordNoDrift},
	}
	return workflow.BuildPlan(tasks, edges)
}

func (p *pipeline) runDataQuality(ctx context.Context, ec domain.ExecutionContext) error {
	_, err := p.quality.Run(ctx, ec)
	return err
}

func (p *pipeline) runModelPerformance(ctx context.Context, ec domain.ExecutionContext) error {
	outcome, err := p.performance.Run(ctx, ec)
	if err != nil {
		return err
	}
	if outcome.Skipped {
		p.logger.Info("model performance check skipped", "message", outcome.Message)
	}
	return nil
}

func (p *pipeline) runServiceHealth(ctx context.Context, ec domain.ExecutionContext) error {
	_, err := p.health.Run(ctx, ec)
	return err
}

func (p *pipeline) runAssemble(ctx context.Context, ec domain.ExecutionContext) error {
	_, err := p.assembler.Assemble(ctx, ec)
	return err
}

// runDriftCheck evaluates the suite and selects exactly one terminal task from
// the typed decision.
func (p *pipeline) runDriftCheck(ctx context.Context, ec domain.ExecutionContext) ([]string, error) {
	result, err := p.suite.Run(ctx, ec)
	if err != nil {
		return nil, err
	}
	switch decision := result.Decision(); decision {
	case domain.NoDrift:
		return []string{taskRecordNoDrift}, nil
	case domain.DriftDetected:
		return []string{taskRaiseDriftAlert}, nil
	default:
		return nil, fmt.Errorf("unsupported branch decision %v", decision)
	}
}

func (p *pipeline) runDriftReport(ctx context.Context, ec domain.ExecutionContext) error {
	_, err := p.reporter.Generate(ctx, ec)
	return err
}

func (p *pipeline) raiseDriftAlert(ctx context.Context, ec domain.ExecutionContext) error {
	p.logger.Error("data drift detected", "run_date", ec.RunDate(), "epoch", ec.Epoch.String())
	return p.sink.Emit(ctx, "drift", "drift_detected", 1, map[string]string{"run_date": ec.RunDate()})
}

func (p *pipeline) recordNoDrift(ctx context.Context, ec domain.ExecutionContext) error {
	p.logger.Info("no drift detected", "run_date", ec.RunDate(), "epoch", ec.Epoch.String())
	return p.sink.Emit(ctx, "drift", "drift_detected", 0, map[string]string{"run_date": ec.RunDate()})
}
