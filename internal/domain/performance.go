package domain

import "errors"

// PerformanceMetrics scores a trained model against its held-out validation split.
type PerformanceMetrics struct {
	RMSE           float64 `json:"rmse"`
	MAE            float64 `json:"mae"`
	R2Score        float64 `json:"r2_score"`
	PredictionMean float64 `json:"prediction_mean"`
	PredictionStd  float64 `json:"prediction_std"`
	ActualMean     float64 `json:"actual_mean"`
	ActualStd      float64 `json:"actual_std"`
}

func (m PerformanceMetrics) Validate() error {
	if m.RMSE < 0 {
		return errors.New("rmse must be >= 0")
	}
	if m.MAE < 0 {
		return errors.New("mae must be >= 0")
	}
	return nil
}

// PerformanceReport is only produced when a trained model exists for the epoch.
type PerformanceReport struct {
	ExecutionDate     string             `json:"execution_date"`
	ModelDataDate     string             `json:"model_data_date"`
	Metrics           PerformanceMetrics `json:"performance_metrics"`
	ValidationSamples int                `json:"validation_samples"`
}

func (r PerformanceReport) Validate() error {
	if r.ExecutionDate == "" {
		return errors.New("execution_date is required")
	}
	if r.ModelDataDate == "" {
		return errors.New("model_data_date is required")
	}
	if r.ValidationSamples < 1 {
		return errors.New("validation_samples must be >= 1")
	}
	return r.Metrics.Validate()
}

// PerformanceOutcome distinguishes a valid skip (no model for the epoch) from a
// completed check. Skipped outcomes carry no metrics and no report.
type PerformanceOutcome struct {
	Skipped bool
	Message string
	Report  *PerformanceReport
}
