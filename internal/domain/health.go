package domain

import "errors"

const (
	HealthVerdictHealthy   = "healthy"
	HealthVerdictUnhealthy = "unhealthy"

	// FunctionStateActive is the operational state required for a healthy verdict.
	FunctionStateActive = "Active"

	// MaxHealthyErrorRate is the error-rate percentage above which the
	// inference service is considered unhealthy.
	MaxHealthyErrorRate = 5.0
)

// HealthReport summarizes the inference service over the trailing 24 hours.
type HealthReport struct {
	ExecutionDate    string  `json:"execution_date"`
	FunctionName     string  `json:"function_name"`
	FunctionStatus   string  `json:"function_status"`
	Invocations24h   float64 `json:"total_invocations_24h"`
	Errors24h        float64 `json:"total_errors_24h"`
	ErrorRatePercent float64 `json:"error_rate_percentage"`
	HealthStatus     string  `json:"health_status"`
}

func (r HealthReport) Validate() error {
	if r.ExecutionDate == "" {
		return errors.New("execution_date is required")
	}
	if r.FunctionName == "" {
		return errors.New("function_name is required")
	}
	if r.HealthStatus != HealthVerdictHealthy && r.HealthStatus != HealthVerdictUnhealthy {
		return errors.New("health_status must be healthy or unhealthy")
	}
	if r.ErrorRatePercent < 0 {
		return errors.New("error_rate_percentage must be >= 0")
	}
	return nil
}

func (r HealthReport) Healthy() bool {
	return r.HealthStatus == HealthVerdictHealthy
}
