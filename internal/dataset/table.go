package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const TableSchemaV1 = "driftwatch.dataset.v1"

// Column names shared by reference and current datasets. They match the
// training feature columns exactly.
const (
	ColPULocation   = "PULocationID"
	ColDOLocation   = "DOLocationID"
	ColTripDistance = "trip_distance"
	ColTarget       = "target"
)

// Row is one observation in the common monitoring schema: categorical location
// identifiers, the numerical trip distance, and a target. For reference data
// the target is the observed duration; for current data it is the emitted
// prediction standing in as a target surrogate.
type Row struct {
	PULocationID string  `json:"PULocationID"`
	DOLocationID string  `json:"DOLocationID"`
	TripDistance float64 `json:"trip_distance"`
	Target       float64 `json:"target"`
}

func (r Row) Validate() error {
	if strings.TrimSpace(r.PULocationID) == "" {
		return errors.New("PULocationID is required")
	}
	if strings.TrimSpace(r.DOLocationID) == "" {
		return errors.New("DOLocationID is required")
	}
	if math.IsNaN(r.TripDistance) || math.IsInf(r.TripDistance, 0) {
		return errors.New("trip_distance must be finite")
	}
	if math.IsNaN(r.Target) || math.IsInf(r.Target, 0) {
		return errors.New("target must be finite")
	}
	return nil
}

// Table is an immutable tabular dataset in the monitoring schema.
type Table struct {
	Schema string `json:"schema"`
	Rows   []Row  `json:"rows"`
}

func NewTable(rows []Row) Table {
	return Table{Schema: TableSchemaV1, Rows: rows}
}

func (t Table) Validate() error {
	if strings.TrimSpace(t.Schema) != TableSchemaV1 {
		return fmt.Errorf("table schema must be %q", TableSchemaV1)
	}
	return nil
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) Clone() Table {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	return Table{Schema: t.Schema, Rows: rows}
}

// Numerical extracts a numerical column as a slice.
func (t Table) Numerical(column string) ([]float64, error) {
	out := make([]float64, len(t.Rows))
	switch column {
	case ColTripDistance:
		for i, row := range t.Rows {
			out[i] = row.TripDistance
		}
	case ColTarget:
		for i, row := range t.Rows {
			out[i] = row.Target
		}
	default:
		return nil, fmt.Errorf("not a numerical column: %q", column)
	}
	return out, nil
}

// Categorical extracts a categorical column as a slice.
func (t Table) Categorical(column string) ([]string, error) {
	out := make([]string, len(t.Rows))
	switch column {
	case ColPULocation:
		for i, row := range t.Rows {
			out[i] = row.PULocationID
		}
	case ColDOLocation:
		for i, row := range t.Rows {
			out[i] = row.DOLocationID
		}
	default:
		return nil, fmt.Errorf("not a categorical column: %q", column)
	}
	return out, nil
}

// MissingShare is the fraction of empty cells across all columns.
func (t Table) MissingShare() float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	const columns = 4
	missing := 0
	for _, row := range t.Rows {
		if strings.TrimSpace(row.PULocationID) == "" {
			missing++
		}
		if strings.TrimSpace(row.DOLocationID) == "" {
			missing++
		}
		if math.IsNaN(row.TripDistance) {
			missing++
		}
		if math.IsNaN(row.Target) {
			missing++
		}
	}
	return float64(missing) / float64(len(t.Rows)*columns)
}

// Equal reports row-for-row equality. Used to verify the degenerate
// current-window fallback.
func (t Table) Equal(other Table) bool {
	if len(t.Rows) != len(other.Rows) {
		return false
	}
	for i := range t.Rows {
		if t.Rows[i] != other.Rows[i] {
			return false
		}
	}
	return true
}

// ValidationSplit is the training pipeline's held-out split artifact
// (models/{epoch}/validation.json). The performance checker scores against it
// and the assembler uses it as the reference distribution.
type ValidationSplit struct {
	Schema  string        `json:"schema"`
	Records []FeatureDict `json:"records"`
	Targets []float64     `json:"targets"`
}

const ValidationSplitSchemaV1 = "driftwatch.validation_split.v1"

// FeatureDict is one prediction input in the training feature schema.
type FeatureDict struct {
	PULocationID string  `json:"PULocationID"`
	DOLocationID string  `json:"DOLocationID"`
	TripDistance float64 `json:"trip_distance"`
}

func (s ValidationSplit) Validate() error {
	if strings.TrimSpace(s.Schema) != ValidationSplitSchemaV1 {
		return fmt.Errorf("validation split schema must be %q", ValidationSplitSchemaV1)
	}
	if len(s.Records) == 0 {
		return errors.New("validation split must be non-empty")
	}
	if len(s.Records) != len(s.Targets) {
		return fmt.Errorf("records/targets length mismatch: %d != %d", len(s.Records), len(s.Targets))
	}
	return nil
}

// Table converts the split into the monitoring schema.
func (s ValidationSplit) Table() Table {
	rows := make([]Row, len(s.Records))
	for i, rec := range s.Records {
		rows[i] = Row{
			PULocationID: rec.PULocationID,
			DOLocationID: rec.DOLocationID,
			TripDistance: rec.TripDistance,
			Target:       s.Targets[i],
		}
	}
	return NewTable(rows)
}
