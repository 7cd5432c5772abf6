// Package monitorspec parses the YAML monitoring specification: which
// function to watch, when runs are scheduled, the suite thresholds, and the
// dataset column mapping.
package monitorspec

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/driftwatch-labs/driftwatch-go/internal/dataset"
)

const SpecSchemaV1 = "driftwatch.monitoring.v1"

type Spec struct {
	Schema       string     `yaml:"schema"`
	FunctionName string     `yaml:"function_name"`
	Schedule     Schedule   `yaml:"schedule"`
	Thresholds   Thresholds `yaml:"thresholds,omitempty"`
	Columns      Columns    `yaml:"columns,omitempty"`
}

type Schedule struct {
	// StartDate anchors backfill; runs are produced for every day from it to
	// the trigger day when catchup is enabled.
	StartDate string `yaml:"start_date"`
	Catchup   bool   `yaml:"catchup"`
}

type Thresholds struct {
	Significance float64 `yaml:"significance,omitempty"`
	MissingSlack float64 `yaml:"missing_value_slack,omitempty"`
}

type Columns struct {
	Numerical   []string `yaml:"numerical,omitempty"`
	Categorical []string `yaml:"categorical,omitempty"`
}

func Load(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read monitoring spec: %w", err)
	}
	return Parse(raw)
}

func Parse(input []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(input, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode monitoring spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func (s Spec) Validate() error {
	if strings.TrimSpace(s.Schema) != SpecSchemaV1 {
		return fmt.Errorf("spec.schema must be %q", SpecSchemaV1)
	}
	if strings.TrimSpace(s.FunctionName) == "" {
		return errors.New("spec.function_name is required")
	}
	if strings.TrimSpace(s.Schedule.StartDate) == "" {
		return errors.New("spec.schedule.start_date is required")
	}
	if _, err := s.StartDate(); err != nil {
		return fmt.Errorf("spec.schedule.start_date: %w", err)
	}
	if s.Thresholds.Significance < 0 || s.Thresholds.Significance >= 1 {
		return errors.New("spec.thresholds.significance must be within [0, 1)")
	}
	if s.Thresholds.MissingSlack < 0 || s.Thresholds.MissingSlack > 1 {
		return errors.New("spec.thresholds.missing_value_slack must be within [0, 1]")
	}

	for i, column := range s.Columns.Numerical {
		switch column {
		case dataset.ColTripDistance, dataset.ColTarget:
		default:
			return fmt.Errorf("spec.columns.numerical[%d] unsupported: %q", i, column)
		}
	}
	for i, column := range s.Columns.Categorical {
		switch column {
		case dataset.ColPULocation, dataset.ColDOLocation:
		default:
			return fmt.Errorf("spec.columns.categorical[%d] unsupported: %q", i, column)
		}
	}
	return nil
}

// StartDate parses the schedule anchor as a UTC day.
func (s Spec) StartDate() (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s.Schedule.StartDate))
}
