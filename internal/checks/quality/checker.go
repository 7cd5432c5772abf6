package quality

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/platform/metrics"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const (
	metricNamespace = "quality"
	failureMetric   = "data_quality_check_failed"

	// Quality gate thresholds.
	minCompletenessScore = 95.0
	maxOutlierShare      = 0.1
)

// Checker computes data-quality metrics over one epoch's raw dataset.
type Checker struct {
	store  objectstore.Store
	bucket string
	sink   metrics.Sink
	logger *slog.Logger
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
	return &Checker{store: store, bucket: bucket, sink: sink, logger: logger}, nil
}

// Run loads the epoch's raw dataset, derives QualityMetrics and the pass/fail
// gates, persists the report, and emits each numeric metric. A missing raw
// dataset is fatal: the failure counter is emitted and the error returned.
func (c *Checker) Run(ctx context.Context, ec domain.ExecutionContext) (domain.QualityReport, error) {
	report, err := c.run(ctx, ec)
	if err != nil {
		c.emitFailure(ctx, ec)
		return domain.QualityReport{}, err
	}
	return report, nil
}

func (c *Checker) run(ctx context.Context, ec domain.ExecutionContext) (domain.QualityReport, error) {
	records, err := dataset.FetchRawTrips(ctx, c.store, c.bucket, ec.Epoch)
	if err != nil {
		return domain.QualityReport{}, fmt.Errorf("raw dataset for %s: %w", ec.Epoch, err)
	}

	qm, err := Compute(records)
	if err != nil {
		return domain.QualityReport{}, fmt.Errorf("compute quality metrics for %s: %w", ec.Epoch, err)
	}

	report := domain.QualityReport{
		ExecutionDate: ec.TriggerTime.Format("2006-01-02T15:04:05Z07:00"),
		DataDate:      ec.Epoch.String(),
		Metrics:       qm,
		Checks:        Gates(qm),
	}
	if err := report.Validate(); err != nil {
		return domain.QualityReport{}, err
	}

	if err := objectstore.PutJSON(ctx, c.store, c.bucket, domain.QualityReportKey(ec.Epoch, ec.RunDate()), report); err != nil {
		return domain.QualityReport{}, err
	}

	dims := map[string]string{"data_date": ec.Epoch.String()}
	for name, value := range metricPoints(qm) {
		if math.IsNaN(value) {
			continue
		}
		if err := c.sink.Emit(ctx, metricNamespace, name, value, dims); err != nil {
			return domain.QualityReport{}, fmt.Errorf("emit %s: %w", name, err)
		}
	}

	c.logger.Info("data quality check completed",
		"epoch", ec.Epoch.String(),
		"records", qm.TotalRecords,
		"completeness_score", qm.CompletenessScore,
		"completeness_passed", report.Checks.DataCompletenessPassed)
	return report, nil
}

func (c *Checker) emitFailure(ctx context.Context, ec domain.ExecutionContext) {
	dims := map[string]string{"data_date": ec.Epoch.String()}
	if err := c.sink.Emit(ctx, metricNamespace, failureMetric, 1, dims); err != nil {
		c.logger.Error("emit failure counter", "error", err)
	}
}

// Compute derives QualityMetrics from one epoch's raw records.
func Compute(records []dataset.RawTripRecord) (domain.QualityMetrics, error) {
	if len(records) == 0 {
		return domain.QualityMetrics{}, fmt.Errorf("raw dataset is empty")
	}

	m := domain.QualityMetrics{TotalRecords: int64(len(records))}
	distances := make([]float64, 0, len(records))
	durations := make([]float64, 0, len(records))

	for _, rec := range records {
		if rec.PULocationID == nil {
			m.NullPickupLocations++
		}
		if rec.DOLocationID == nil {
			m.NullDropoffLocations++
		}
		switch {
		case rec.TripDistance == nil:
			m.NullTripDistance++
		case *rec.TripDistance == 0:
			m.ZeroTripDistance++
			distances = append(distances, *rec.TripDistance)
		case *rec.TripDistance < 0:
			m.NegativeTripDistance++
			distances = append(distances, *rec.TripDistance)
		default:
			distances = append(distances, *rec.TripDistance)
		}

		duration := rec.DurationMinutes()
		durations = append(durations, duration)
		if duration < dataset.MinDurationMinutes {
			m.OutlierDurationShort++
		}
		if duration > dataset.MaxDurationMinutes {
			m.OutlierDurationLong++
		}
	}

	if len(distances) > 0 {
		m.MeanTripDistance = stat.Mean(distances, nil)
		m.StdTripDistance = stat.StdDev(distances, nil)
	}
	m.MeanDuration = stat.Mean(durations, nil)
	m.StdDuration = stat.StdDev(durations, nil)

	nulls := m.NullPickupLocations + m.NullDropoffLocations + m.NullTripDistance
	m.CompletenessScore = (1 - float64(nulls)/float64(3*m.TotalRecords)) * 100

	if err := m.Validate(); err != nil {
		return domain.QualityMetrics{}, err
	}
	return m, nil
}

// Gates derives the pass/fail quality gates from the metrics.
func Gates(m domain.QualityMetrics) domain.QualityChecks {
	outlierShare := float64(m.OutlierDurationShort+m.OutlierDurationLong) / float64(m.TotalRecords)
	return domain.QualityChecks{
		DataCompletenessPassed:      m.CompletenessScore > minCompletenessScore,
		OutlierPercentageAcceptable: outlierShare < maxOutlierShare,
		NoNegativeDistances:         m.NegativeTripDistance == 0,
	}
}

func metricPoints(m domain.QualityMetrics) map[string]float64 {
	return map[string]float64{
		"total_records":           float64(m.TotalRecords),
		"null_pickup_locations":   float64(m.NullPickupLocations),
		"null_dropoff_locations":  float64(m.NullDropoffLocations),
		"null_trip_distance":      float64(m.NullTripDistance),
		"zero_trip_distance":      float64(m.ZeroTripDistance),
		"negative_trip_distance":  float64(m.NegativeTripDistance),
		"mean_trip_distance":      m.MeanTripDistance,
		"std_trip_distance":       m.StdTripDistance,
		"mean_duration":           m.MeanDuration,
		"std_duration":            m.StdDuration,
		"outlier_duration_short":  float64(m.OutlierDurationShort),
		"outlier_duration_long":   float64(m.OutlierDurationLong),
		"data_completeness_score": m.CompletenessScore,
	}
}
