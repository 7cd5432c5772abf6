package domain

import (
	"errors"
	"fmt"
)

// QualityMetrics is derived entirely from one epoch's raw dataset.
type QualityMetrics struct {
	TotalRecords         int64   `json:"total_records"`
	NullPickupLocations  int64   `json:"null_pickup_locations"`
	NullDropoffLocations int64   `json:"null_dropoff_locations"`
	NullTripDistance     int64   `json:"null_trip_distance"`
	ZeroTripDistance     int64   `json:"zero_trip_distance"`
	NegativeTripDistance int64   `json:"negative_trip_distance"`
	MeanTripDistance     float64 `json:"mean_trip_distance"`
	StdTripDistance      float64 `json:"std_trip_distance"`
	MeanDuration         float64 `json:"mean_duration"`
	StdDuration          float64 `json:"std_duration"`
	OutlierDurationShort int64   `json:"outlier_duration_short"`
	OutlierDurationLong  int64   `json:"outlier_duration_long"`
	CompletenessScore    float64 `json:"data_completeness_score"`
}

func (m QualityMetrics) Validate() error {
	if m.TotalRecords < 0 {
		return errors.New("total_records must be >= 0")
	}
	if m.CompletenessScore < 0 || m.CompletenessScore > 100 {
		return fmt.Errorf("data_completeness_score out of [0,100]: %v", m.CompletenessScore)
	}
	return nil
}

// QualityChecks are the pass/fail gates derived from QualityMetrics.
type QualityChecks struct {
	DataCompletenessPassed      bool `json:"data_completeness_passed"`
	OutlierPercentageAcceptable bool `json:"outlier_percentage_acceptable"`
	NoNegativeDistances         bool `json:"no_negative_distances"`
}

// QualityReport is written once per run, keyed by epoch and run date.
type QualityReport struct {
	ExecutionDate string         `json:"execution_date"`
	DataDate      string         `json:"data_date"`
	Metrics       QualityMetrics `json:"quality_metrics"`
	Checks        QualityChecks  `json:"quality_checks"`
}

func (r QualityReport) Validate() error {
	if r.ExecutionDate == "" {
		return errors.New("execution_date is required")
	}
	if r.DataDate == "" {
		return errors.New("data_date is required")
	}
	return r.Metrics.Validate()
}
