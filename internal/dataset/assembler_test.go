package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const testBucket = "taxi-prediction-data"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext(t *testing.T) domain.ExecutionContext {
	t.Helper()
	ec, err := domain.NewExecutionContext("run-1", time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewExecutionContext: %v", err)
	}
	return ec
}

func seedValidationSplit(t *testing.T, store objectstore.Store, epoch domain.Epoch) ValidationSplit {
	t.Helper()
	split := ValidationSplit{
		Schema: ValidationSplitSchemaV1,
		Records: []FeatureDict{
			{PULocationID: "132", DOLocationID: "138", TripDistance: 2.5},
			{PULocationID: "75", DOLocationID: "236", TripDistance: 5.1},
			{PULocationID: "43", DOLocationID: "151", TripDistance: 1.2},
		},
		Targets: []float64{12, 18.5, 7.3},
	}
	if err := objectstore.PutJSON(context.Background(), store, testBucket, domain.ValidationSplitKey(epoch), split); err != nil {
		t.Fatalf("seed validation split: %v", err)
	}
	return split
}

func seedPredictionLog(t *testing.T, store objectstore.Store, ts time.Time, id string, log PredictionLog) {
	t.Helper()
	key := domain.PredictionLogPrefix(ts) + id + ".json"
	if err := objectstore.PutJSON(context.Background(), store, testBucket, key, log); err != nil {
		t.Fatalf("seed prediction log: %v", err)
	}
}

func TestAssembleWithPredictionLogs(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	ec := testContext(t)
	seedValidationSplit(t, store, ec.Epoch)

	logTime := ec.TriggerTime.Add(-2 * time.Hour)
	for i := 0; i < 3; i++ {
		seedPredictionLog(t, store, logTime, fmt.Sprintf("ride-%d", i), PredictionLog{
			RideID:            fmt.Sprintf("ride-%d", i),
			Timestamp:         logTime.Format(time.RFC3339),
			Features:          FeatureDict{PULocationID: "132", DOLocationID: "138", TripDistance: 3.0},
			PredictedDuration: 14.5,
		})
	}
	// Outside the 24h window: same day partition, earlier timestamp.
	stale := ec.TriggerTime.Add(-30 * time.Hour)
	seedPredictionLog(t, store, ec.TriggerTime.Add(-23*time.Hour), "ride-stale", PredictionLog{
		RideID:            "ride-stale",
		Timestamp:         stale.Format(time.RFC3339),
		Features:          FeatureDict{PULocationID: "1", DOLocationID: "2", TripDistance: 1.0},
		PredictedDuration: 9,
	})

	assembler, err := NewAssembler(store, testBucket, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	manifest, err := assembler.Assemble(ctx, ec)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if manifest.ReferenceSource != ReferenceSourceValidationSplit {
		t.Fatalf("reference source=%q, want validation_split", manifest.ReferenceSource)
	}
	if manifest.CurrentRows != 3 {
		t.Fatalf("current rows=%d, want 3", manifest.CurrentRows)
	}
	if manifest.CurrentIsReferenceCopy {
		t.Fatal("populated window flagged as reference copy")
	}

	_, current, _, err := assembler.LoadSnapshot(ctx, ec.RunDate())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if current.Rows[0].Target != 14.5 {
		t.Fatalf("prediction not used as target surrogate: %v", current.Rows[0].Target)
	}
}

func TestAssembleMalformedLogsSkippedAndCounted(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	ec := testContext(t)
	seedValidationSplit(t, store, ec.Epoch)

	logTime := ec.TriggerTime.Add(-time.Hour)
	seedPredictionLog(t, store, logTime, "good", PredictionLog{
		Timestamp:         logTime.Format(time.RFC3339),
		Features:          FeatureDict{PULocationID: "132", DOLocationID: "138", TripDistance: 3.0},
		PredictedDuration: 14.5,
	})
	// Missing feature fields violate the row schema.
	seedPredictionLog(t, store, logTime, "bad-features", PredictionLog{
		Timestamp:         logTime.Format(time.RFC3339),
		PredictedDuration: 9,
	})
	// Unparseable timestamp.
	seedPredictionLog(t, store, logTime, "bad-time", PredictionLog{
		Timestamp:         "yesterday",
		Features:          FeatureDict{PULocationID: "1", DOLocationID: "2", TripDistance: 1},
		PredictedDuration: 9,
	})

	assembler, err := NewAssembler(store, testBucket, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	manifest, err := assembler.Assemble(ctx, ec)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if manifest.CurrentRows != 1 {
		t.Fatalf("current rows=%d, want 1", manifest.CurrentRows)
	}
	if manifest.MalformedLogsSkipped != 2 {
		t.Fatalf("malformed skipped=%d, want 2", manifest.MalformedLogsSkipped)
	}
}

func TestAssembleEmptyWindowFallsBackToReference(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	ec := testContext(t)
	seedValidationSplit(t, store, ec.Epoch)

	assembler, err := NewAssembler(store, testBucket, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	manifest, err := assembler.Assemble(ctx, ec)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !manifest.CurrentIsReferenceCopy {
		t.Fatal("empty window not flagged as reference copy")
	}

	reference, current, loaded, err := assembler.LoadSnapshot(ctx, ec.RunDate())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !current.Equal(reference) {
		t.Fatal("current is not a row-for-row copy of reference")
	}
	if !loaded.CurrentIsReferenceCopy {
		t.Fatal("manifest flag lost across persistence")
	}
}

func TestAssembleMissingEverythingFails(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	ec := testContext(t)

	assembler, err := NewAssembler(store, testBucket, testLogger())
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	if _, err := assembler.Assemble(ctx, ec); err == nil {
		t.Fatal("assembly succeeded with no validation split and no raw data")
	}
}
