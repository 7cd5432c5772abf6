package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const (
	testBucket   = "taxi-prediction-data"
	testFunction = "duration-predictor"
)

type fakeDescriptor struct {
	state string
	err   error
}

func (d *fakeDescriptor) GetState(ctx context.Context, function string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.state, nil
}

type fakeQuerier struct {
	sums map[string][]float64
	err  error
}

func (q *fakeQuerier) TrailingSums(ctx context.Context, namespace, metric string, dims map[string]string, end time.Time, window, step time.Duration) ([]float64, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.sums[metric], nil
}

type fakeSink struct {
	mu     sync.Mutex
	points map[string]float64
}

func newFakeSink() *fakeSink {
	return &fakeSink{points: make(map[string]float64)}
}

func (s *fakeSink) Emit(ctx context.Context, namespace, name string, value float64, dims map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[name] = value
	return nil
}

func (s *fakeSink) value(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.points[name]
	return v, ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newChecker(t *testing.T, descriptor *fakeDescriptor, querier *fakeQuerier, sink *fakeSink, store objectstore.Store) *Checker {
	t.Helper()
	checker, err := NewChecker(descriptor, querier, sink, store, testBucket, testFunction, testLogger())
	if err != nil {
		t.Fatalf("NewChecker: %v", err)
	}
	return checker
}

func testContext(t *testing.T) domain.ExecutionContext {
	t.Helper()
	ec, err := domain.NewExecutionContext("run-1", time.Date(2023, 7, 1, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewExecutionContext: %v", err)
	}
	return ec
}

func TestRunHealthyActiveFunction(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	sink := newFakeSink()
	querier := &fakeQuerier{sums: map[string][]float64{
		invocationsMetric: {100, 200, 300},
		errorsMetric:      {1, 2, 3},
	}}

	checker := newChecker(t, &fakeDescriptor{state: domain.FunctionStateActive}, querier, sink, store)
	ec := testContext(t)

	report, err := checker.Run(ctx, ec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Invocations24h != 600 {
		t.Fatalf("invocations=%v, want 600", report.Invocations24h)
	}
	if report.Errors24h != 6 {
		t.Fatalf("errors=%v, want 6", report.Errors24h)
	}
	if report.ErrorRatePercent != 1.0 {
		t.Fatalf("error rate=%v, want 1.0", report.ErrorRatePercent)
	}
	if !report.Healthy() {
		t.Fatal("active function at 1% error rate judged unhealthy")
	}

	var persisted domain.HealthReport
	if err := objectstore.GetJSON(ctx, store, testBucket, domain.HealthReportKey(ec.RunDate()), &persisted); err != nil {
		t.Fatalf("read persisted report: %v", err)
	}
	if persisted.HealthStatus != domain.HealthVerdictHealthy {
		t.Fatalf("persisted verdict=%q", persisted.HealthStatus)
	}

	if v, ok := sink.value("health_check_passed"); !ok || v != 1 {
		t.Fatalf("health_check_passed=%v ok=%v, want 1", v, ok)
	}
	if v, ok := sink.value("error_rate_percentage"); !ok || v != 1.0 {
		t.Fatalf("error_rate_percentage=%v ok=%v, want 1.0", v, ok)
	}
}

func TestRunZeroInvocationsIsZeroErrorRate(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	sink := newFakeSink()
	querier := &fakeQuerier{sums: map[string][]float64{}}

	checker := newChecker(t, &fakeDescriptor{state: domain.FunctionStateActive}, querier, sink, store)

	report, err := checker.Run(ctx, testContext(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ErrorRatePercent != 0 {
		t.Fatalf("error rate=%v, want 0 for idle function", report.ErrorRatePercent)
	}
	if !report.Healthy() {
		t.Fatal("idle active function judged unhealthy")
	}
}

func TestRunUnhealthyOnHighErrorRate(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	sink := newFakeSink()
	querier := &fakeQuerier{sums: map[string][]float64{
		invocationsMetric: {100},
		errorsMetric:      {10},
	}}

	checker := newChecker(t, &fakeDescriptor{state: domain.FunctionStateActive}, querier, sink, store)

	report, err := checker.Run(ctx, testContext(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ErrorRatePercent != 10.0 {
		t.Fatalf("error rate=%v, want 10.0", report.ErrorRatePercent)
	}
	if report.Healthy() {
		t.Fatal("function at 10% error rate judged healthy")
	}
	if v, _ := sink.value("health_check_passed"); v != 0 {
		t.Fatalf("health_check_passed=%v, want 0", v)
	}
}

func TestRunUnhealthyOnInactiveState(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	sink := newFakeSink()
	querier := &fakeQuerier{sums: map[string][]float64{
		invocationsMetric: {100},
	}}

	checker := newChecker(t, &fakeDescriptor{state: "Pending"}, querier, sink, store)

	report, err := checker.Run(ctx, testContext(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Healthy() {
		t.Fatal("pending function judged healthy")
	}
	if report.FunctionStatus != "Pending" {
		t.Fatalf("function_status=%q", report.FunctionStatus)
	}
}

func TestRunQueryFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	sink := newFakeSink()
	querier := &fakeQuerier{err: errors.New("influx unreachable")}

	checker := newChecker(t, &fakeDescriptor{state: domain.FunctionStateActive}, querier, sink, store)

	if _, err := checker.Run(ctx, testContext(t)); err == nil {
		t.Fatal("query failure did not fail the check")
	}
	if v, ok := sink.value(failureMetric); !ok || v != 1 {
		t.Fatal("failure counter not emitted")
	}
}

func TestRunDescriptorFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	sink := newFakeSink()
	querier := &fakeQuerier{sums: map[string][]float64{}}

	checker := newChecker(t, &fakeDescriptor{err: errors.New("control plane down")}, querier, sink, store)

	if _, err := checker.Run(ctx, testContext(t)); err == nil {
		t.Fatal("descriptor failure did not fail the check")
	}
	if _, ok := sink.value(failureMetric); !ok {
		t.Fatal("failure counter not emitted")
	}
}
