package performance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/model"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/metrics"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const (
	metricNamespace = "performance"
	failureMetric   = "performance_monitoring_failed"
)

// Checker scores the epoch's trained model against its held-out validation
// split. Model absence is a valid skip, not a failure.
type Checker struct {
	store  objectstore.Store
	bucket string
	sink   metrics.Sink
	logger *slog.Logger

	mu     sync.Mutex
	caches map[domain.Epoch]*model.Cache
}

func NewChecker(store objectstore.Store, bucket string, sink metrics.Sink, logger *slog.Logger) (*Checker, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("metrics sink is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		store:  store,
		bucket: bucket,
		sink:   sink,
		logger: logger,
		caches: make(map[domain.Epoch]*model.Cache),
	}, nil
}

// Run checks for a trained model and, when present, computes
// PerformanceMetrics, emits them, and writes the report. Failures after the
// existence check emit the failure counter and propagate.
func (c *Checker) Run(ctx context.Context, ec domain.ExecutionContext) (domain.PerformanceOutcome, error) {
	exists, err := objectstore.Exists(ctx, c.store, c.bucket, domain.ModelKey(ec.Epoch))
	if err != nil {
		c.emitFailure(ctx, ec)
		return domain.PerformanceOutcome{}, fmt.Errorf("check model existence for %s: %w", ec.Epoch, err)
	}
	if !exists {
		message := fmt.Sprintf("skipped — no model for %s", ec.Epoch)
		c.logger.Info("model performance check skipped", "epoch", ec.Epoch.String())
		return domain.PerformanceOutcome{Skipped: true, Message: message}, nil
	}

	outcome, err := c.score(ctx, ec)
	if err != nil {
		c.emitFailure(ctx, ec)
		return domain.PerformanceOutcome{}, err
	}
	return outcome, nil
}

// Invalidate drops any cached bundle for the epoch, forcing a reload on the
// next run that scores it.
func (c *Checker) Invalidate(epoch domain.Epoch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cache, ok := c.caches[epoch]; ok {
		cache.Invalidate()
	}
}

func (c *Checker) score(ctx context.Context, ec domain.ExecutionContext) (domain.PerformanceOutcome, error) {
	bundle, err := c.bundleFor(ec.Epoch).Get(ctx)
	if err != nil {
		return domain.PerformanceOutcome{}, fmt.Errorf("load model bundle for %s: %w", ec.Epoch, err)
	}

	var split dataset.ValidationSplit
	if err := objectstore.GetJSON(ctx, c.store, c.bucket, domain.ValidationSplitKey(ec.Epoch), &split); err != nil {
		return domain.PerformanceOutcome{}, fmt.Errorf("load validation split for %s: %w", ec.Epoch, err)
	}
	if err := split.Validate(); err != nil {
		return domain.PerformanceOutcome{}, fmt.Errorf("validation split for %s: %w", ec.Epoch, err)
	}

	predictions := make([]float64, len(split.Records))
	for i, rec := range split.Records {
		predictions[i] = bundle.Predict(
			map[string]string{"PULocationID": rec.PULocationID, "DOLocationID": rec.DOLocationID},
			map[string]float64{"trip_distance": rec.TripDistance},
		)
	}

	pm, err := Score(predictions, split.Targets)
	if err != nil {
		return domain.PerformanceOutcome{}, fmt.Errorf("score model for %s: %w", ec.Epoch, err)
	}

	report := domain.PerformanceReport{
		ExecutionDate:     ec.TriggerTime.Format("2006-01-02T15:04:05Z07:00"),
		ModelDataDate:     ec.Epoch.String(),
		Metrics:           pm,
		ValidationSamples: len(split.Records),
	}
	if err := report.Validate(); err != nil {
		return domain.PerformanceOutcome{}, err
	}

	if err := objectstore.PutJSON(ctx, c.store, c.bucket, domain.PerformanceReportKey(ec.Epoch, ec.RunDate()), report); err != nil {
		return domain.PerformanceOutcome{}, err
	}

	dims := map[string]string{"model_data_date": ec.Epoch.String()}
	for name, value := range metricPoints(pm) {
		if math.IsNaN(value) {
			continue
		}
		if err := c.sink.Emit(ctx, metricNamespace, name, value, dims); err != nil {
			return domain.PerformanceOutcome{}, fmt.Errorf("emit %s: %w", name, err)
		}
	}

	c.logger.Info("model performance check completed",
		"epoch", ec.Epoch.String(),
		"rmse", pm.RMSE,
		"r2_score", pm.R2Score,
		"validation_samples", report.ValidationSamples)
	return domain.PerformanceOutcome{Report: &report}, nil
}

func (c *Checker) bundleFor(epoch domain.Epoch) *model.Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cache, ok := c.caches[epoch]; ok {
		return cache
	}
	cache, _ := model.NewCache(func(ctx context.Context) (model.Bundle, error) {
		var bundle model.Bundle
		if err := objectstore.GetJSON(ctx, c.store, c.bucket, domain.ModelKey(epoch), &bundle.Model); err != nil {
			return model.Bundle{}, err
		}
		if err := objectstore.GetJSON(ctx, c.store, c.bucket, domain.EncoderKey(epoch), &bundle.Encoder); err != nil {
			return model.Bundle{}, err
		}
		return bundle, nil
	})
	c.caches[epoch] = cache
	return cache
}

func (c *Checker) emitFailure(ctx context.Context, ec domain.ExecutionContext) {
	dims := map[string]string{"model_data_date": ec.Epoch.String()}
	if err := c.sink.Emit(ctx, metricNamespace, failureMetric, 1, dims); err != nil {
		c.logger.Error("emit failure counter", "error", err)
	}
}

// Score derives PerformanceMetrics from parallel prediction/actual slices.
func Score(predictions, actuals []float64) (domain.PerformanceMetrics, error) {
	if len(predictions) == 0 {
		return domain.PerformanceMetrics{}, fmt.Errorf("no validation samples")
	}
	if len(predictions) != len(actuals) {
		return domain.PerformanceMetrics{}, fmt.Errorf("predictions/actuals length mismatch: %d != %d", len(predictions), len(actuals))
	}

	var sumSq, sumAbs float64
	for i := range predictions {
		diff := predictions[i] - actuals[i]
		sumSq += diff * diff
		sumAbs += math.Abs(diff)
	}
	n := float64(len(predictions))

	pm := domain.PerformanceMetrics{
		RMSE:           math.Sqrt(sumSq / n),
		MAE:            sumAbs / n,
		R2Score:        stat.RSquaredFrom(predictions, actuals, nil),
		PredictionMean: stat.Mean(predictions, nil),
		PredictionStd:  stat.StdDev(predictions, nil),
		ActualMean:     stat.Mean(actuals, nil),
		ActualStd:      stat.StdDev(actuals, nil),
	}
	if err := pm.Validate(); err != nil {
		return domain.PerformanceMetrics{}, err
	}
	return pm, nil
}

func metricPoints(m domain.PerformanceMetrics) map[string]float64 {
	return map[string]float64{
		"rmse":            m.RMSE,
		"mae":             m.MAE,
		"r2_score":        m.R2Score,
		"prediction_mean": m.PredictionMean,
		"prediction_std":  m.PredictionStd,
		"actual_mean":     m.ActualMean,
		"actual_std":      m.ActualStd,
	}
}
