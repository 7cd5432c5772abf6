// Package health verifies the inference service is active and operating below
// the error-rate ceiling over the trailing day.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/inference"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/metrics"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const (
	metricNamespace = "health"
	failureMetric   = "health_monitoring_failed"

	invocationsMetric = "invocations"
	errorsMetric      = "errors"

	opsNamespace = "inference"

	window = 24 * time.Hour
	step   = time.Hour
)

// Checker derives a health verdict from the function's operational state and
// its trailing invocation and error counts.
type Checker struct {
	descriptor inference.Descriptor
	querier    metrics.Querier
	sink       metrics.Sink
	store      objectstore.Store
	bucket     string
	function   string
	logger     *slog.Logger
}

func NewChecker(descriptor inference.Descriptor, querier metrics.Querier, sink metrics.Sink, store objectstore.Store, bucket, function string, logger *slog.Logger) (*Checker, error) {
	if descriptor == nil {
		return nil, fmt.Errorf("function descriptor is required")
	}
	if querier == nil {
		return nil, fmt.Errorf("metrics querier is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("metrics sink is required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if strings.TrimSpace(function) == "" {
		return nil, fmt.Errorf("function name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		descriptor: descriptor,
		querier:    querier,
		sink:       sink,
		store:      store,
		bucket:     bucket,
		function:   function,
		logger:     logger,
	}, nil
}

// Run describes the function, sums its trailing invocation and error counts,
// persists the verdict, and emits the error rate. Descriptor or query failures
// are fatal: the failure counter is emitted and the error returned.
func (c *Checker) Run(ctx context.Context, ec domain.ExecutionContext) (domain.HealthReport, error) {
	report, err := c.run(ctx, ec)
	if err != nil {
		c.emitFailure(ctx)
		return domain.HealthReport{}, err
	}
	return report, nil
}

func (c *Checker) run(ctx context.Context, ec domain.ExecutionContext) (domain.HealthReport, error) {
	state, err := c.descriptor.GetState(ctx, c.function)
	if err != nil {
		return domain.HealthReport{}, fmt.Errorf("describe function: %w", err)
	}

	invocations, err := c.trailingTotal(ctx, invocationsMetric, ec.TriggerTime)
	if err != nil {
		return domain.HealthReport{}, fmt.Errorf("query invocations: %w", err)
	}
	errorCount, err := c.trailingTotal(ctx, errorsMetric, ec.TriggerTime)
	if err != nil {
		return domain.HealthReport{}, fmt.Errorf("query errors: %w", err)
	}

	// An idle function is not an erroring one.
	errorRate := 0.0
	if invocations > 0 {
		errorRate = errorCount / invocations * 100
	}

	verdict := domain.HealthVerdictUnhealthy
	if state == domain.FunctionStateActive && errorRate < domain.MaxHealthyErrorRate {
		verdict = domain.HealthVerdictHealthy
	}

	report := domain.HealthReport{
		ExecutionDate:    ec.TriggerTime.Format("2006-01-02T15:04:05Z07:00"),
		FunctionName:     c.function,
		FunctionStatus:   state,
		Invocations24h:   invocations,
		Errors24h:        errorCount,
		ErrorRatePercent: errorRate,
		HealthStatus:     verdict,
	}
	if err := report.Validate(); err != nil {
		return domain.HealthReport{}, err
	}

	if err := objectstore.PutJSON(ctx, c.store, c.bucket, domain.HealthReportKey(ec.RunDate()), report); err != nil {
		return domain.HealthReport{}, err
	}

	dims := map[string]string{"function_name": c.function}
	if err := c.sink.Emit(ctx, metricNamespace, "error_rate_percentage", errorRate, dims); err != nil {
		return domain.HealthReport{}, fmt.Errorf("emit error rate: %w", err)
	}
	passed := 0.0
	if report.Healthy() {
		passed = 1
	}
	if err := c.sink.Emit(ctx, metricNamespace, "health_check_passed", passed, dims); err != nil {
		return domain.HealthReport{}, fmt.Errorf("emit verdict: %w", err)
	}

	c.logger.Info("service health check completed",
		"function", c.function,
		"state", state,
		"invocations_24h", invocations,
		"errors_24h", errorCount,
		"error_rate_percentage", errorRate,
		"health_status", verdict)
	return report, nil
}

func (c *Checker) trailingTotal(ctx context.Context, metric string, end time.Time) (float64, error) {
	dims := map[string]string{"function_name": c.function}
	sums, err := c.querier.TrailingSums(ctx, opsNamespace, metric, dims, end, window, step)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range sums {
		total += v
	}
	return total, nil
}

func (c *Checker) emitFailure(ctx context.Context) {
	dims := map[string]string{"function_name": c.function}
	if err := c.sink.Emit(ctx, metricNamespace, failureMetric, 1, dims); err != nil {
		c.logger.Error("emit failure counter", "error", err)
	}
}
