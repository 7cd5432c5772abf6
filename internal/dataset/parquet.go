package dataset

import (
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// RawTripRecord mirrors the raw-data parquet schema. Nullable columns are
// pointers so null counts survive the read.
type RawTripRecord struct {
	PULocationID    *int64   `parquet:"PULocationID,optional"`
	DOLocationID    *int64   `parquet:"DOLocationID,optional"`
	TripDistance    *float64 `parquet:"trip_distance,optional"`
	PickupDatetime  int64    `parquet:"tpep_pickup_datetime,timestamp(microsecond)"`
	DropoffDatetime int64    `parquet:"tpep_dropoff_datetime,timestamp(microsecond)"`
}

// DurationMinutes is the trip duration derived from pickup/dropoff timestamps.
func (r RawTripRecord) DurationMinutes() float64 {
	pickup := time.UnixMicro(r.PickupDatetime)
	dropoff := time.UnixMicro(r.DropoffDatetime)
	return dropoff.Sub(pickup).Minutes()
}

// ReadRawTrips parses an epoch's raw dataset from a local parquet file.
func ReadRawTrips(path string) ([]RawTripRecord, error) {
	records, err := parquet.ReadFile[RawTripRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return records, nil
}

// Training-time cleaning bounds. Reference datasets recomputed from raw data
// must apply the identical filter the training pipeline used.
const (
	MinDurationMinutes = 1.0
	MaxDurationMinutes = 60.0
)

// CleanForTraining applies the training-time cleaning rule: keep trips with
// duration in [1, 60] minutes, drop rows with null features, cast location
// identifiers to strings. The observed duration becomes the target.
func CleanForTraining(records []RawTripRecord) Table {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if rec.PULocationID == nil || rec.DOLocationID == nil || rec.TripDistance == nil {
			continue
		}
		duration := rec.DurationMinutes()
		if duration < MinDurationMinutes || duration > MaxDurationMinutes {
			continue
		}
		rows = append(rows, Row{
			PULocationID: strconv.FormatInt(*rec.PULocationID, 10),
			DOLocationID: strconv.FormatInt(*rec.DOLocationID, 10),
			TripDistance: *rec.TripDistance,
			Target:       duration,
		})
	}
	return NewTable(rows)
}
