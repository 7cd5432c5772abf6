package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

const (
	ManifestSchemaV1 = "driftwatch.snapshot_manifest.v1"

	ReferenceSourceValidationSplit = "validation_split"
	ReferenceSourceRawRecomputed   = "raw_recomputed"

	// CurrentWindow is the trailing window of prediction logs that forms the
	// current dataset.
	CurrentWindow = 24 * time.Hour
)

// PredictionLog is one inference request log as written by the prediction
// service: the feature dictionary it scored plus the emitted prediction.
type PredictionLog struct {
	RideID            string      `json:"ride_id"`
	Timestamp         string      `json:"timestamp"`
	Features          FeatureDict `json:"features"`
	PredictedDuration float64     `json:"predicted_duration"`
}

// SnapshotManifest describes one assembled reference/current snapshot. The
// snapshot is write-once: drift evaluation and report generation read the
// identical tables and never repeat the assembly fallback logic.
type SnapshotManifest struct {
	Schema                 string `json:"schema"`
	RunDate                string `json:"run_date"`
	Epoch                  string `json:"epoch"`
	ReferenceSource        string `json:"reference_source"`
	ReferenceRows          int    `json:"reference_rows"`
	CurrentRows            int    `json:"current_rows"`
	CurrentIsReferenceCopy bool   `json:"current_is_reference_copy"`
	MalformedLogsSkipped   int    `json:"malformed_logs_skipped"`
}

func (m SnapshotManifest) Validate() error {
	if strings.TrimSpace(m.Schema) != ManifestSchemaV1 {
		return fmt.Errorf("manifest schema must be %q", ManifestSchemaV1)
	}
	if m.RunDate == "" {
		return errors.New("run_date is required")
	}
	if m.ReferenceRows < 1 {
		return errors.New("reference_rows must be >= 1")
	}
	return nil
}

// Assembler builds the reference and current datasets for one run and persists
// them as the snapshot hand-off consumed by drift evaluation and reporting.
type Assembler struct {
	store  objectstore.Store
	bucket string
	logger *slog.Logger
}

func NewAssembler(store objectstore.Store, bucket string, logger *slog.Logger) (*Assembler, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{store: store, bucket: bucket, logger: logger}, nil
}

// Assemble builds and persists the snapshot for one execution context.
func (a *Assembler) Assemble(ctx context.Context, ec domain.ExecutionContext) (SnapshotManifest, error) {
	reference, source, err := a.buildReference(ctx, ec.Epoch)
	if err != nil {
		return SnapshotManifest{}, fmt.Errorf("build reference dataset: %w", err)
	}
	if reference.Len() == 0 {
		return SnapshotManifest{}, fmt.Errorf("reference dataset for %s is empty after cleaning", ec.Epoch)
	}

	current, skipped, err := a.buildCurrent(ctx, ec.TriggerTime)
	if err != nil {
		return SnapshotManifest{}, fmt.Errorf("build current dataset: %w", err)
	}

	degenerate := current.Len() == 0
	if degenerate {
		// No production traffic in the window. Reference stands in for
		// current so the suite still runs; the manifest flags the copy so the
		// trivially passing feature-drift verdict is not read as a monitored
		// period.
		a.logger.Warn("no prediction logs in current window, using reference as current",
			"run_date", ec.RunDate(), "window_hours", int(CurrentWindow.Hours()))
		current = reference.Clone()
	}

	manifest := SnapshotManifest{
		Schema:                 ManifestSchemaV1,
		RunDate:                ec.RunDate(),
		Epoch:                  ec.Epoch.String(),
		ReferenceSource:        source,
		ReferenceRows:          reference.Len(),
		CurrentRows:            current.Len(),
		CurrentIsReferenceCopy: degenerate,
		MalformedLogsSkipped:   skipped,
	}
	if err := manifest.Validate(); err != nil {
		return SnapshotManifest{}, err
	}

	runDate := ec.RunDate()
	if err := objectstore.PutJSON(ctx, a.store, a.bucket, domain.SnapshotReferenceKey(runDate), reference); err != nil {
		return SnapshotManifest{}, err
	}
	if err := objectstore.PutJSON(ctx, a.store, a.bucket, domain.SnapshotCurrentKey(runDate), current); err != nil {
		return SnapshotManifest{}, err
	}
	if err := objectstore.PutJSON(ctx, a.store, a.bucket, domain.SnapshotManifestKey(runDate), manifest); err != nil {
		return SnapshotManifest{}, err
	}

	a.logger.Info("monitoring snapshot assembled",
		"run_date", runDate,
		"reference_rows", reference.Len(),
		"current_rows", current.Len(),
		"reference_source", source,
		"malformed_logs_skipped", skipped,
		"current_is_reference_copy", degenerate)
	return manifest, nil
}

// LoadSnapshot reads back a persisted snapshot. Both the drift runner and the
// report generator consume this identical view.
func (a *Assembler) LoadSnapshot(ctx context.Context, runDate string) (Table, Table, SnapshotManifest, error) {
	var reference, current Table
	var manifest SnapshotManifest
	if err := objectstore.GetJSON(ctx, a.store, a.bucket, domain.SnapshotReferenceKey(runDate), &reference); err != nil {
		return Table{}, Table{}, SnapshotManifest{}, err
	}
	if err := objectstore.GetJSON(ctx, a.store, a.bucket, domain.SnapshotCurrentKey(runDate), &current); err != nil {
		return Table{}, Table{}, SnapshotManifest{}, err
	}
	if err := objectstore.GetJSON(ctx, a.store, a.bucket, domain.SnapshotManifestKey(runDate), &manifest); err != nil {
		return Table{}, Table{}, SnapshotManifest{}, err
	}
	if err := reference.Validate(); err != nil {
		return Table{}, Table{}, SnapshotManifest{}, fmt.Errorf("reference snapshot: %w", err)
	}
	if err := current.Validate(); err != nil {
		return Table{}, Table{}, SnapshotManifest{}, fmt.Errorf("current snapshot: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return Table{}, Table{}, SnapshotManifest{}, fmt.Errorf("snapshot manifest: %w", err)
	}
	return reference, current, manifest, nil
}

func (a *Assembler) buildReference(ctx context.Context, epoch domain.Epoch) (Table, string, error) {
	var split ValidationSplit
	err := objectstore.GetJSON(ctx, a.store, a.bucket, domain.ValidationSplitKey(epoch), &split)
	if err == nil {
		if err := split.Validate(); err == nil {
			return split.Table(), ReferenceSourceValidationSplit, nil
		}
		a.logger.Warn("validation split invalid, recomputing reference from raw data",
			"epoch", epoch.String())
	} else {
		a.logger.Warn("validation split unavailable, recomputing reference from raw data",
			"epoch", epoch.String(), "error", err)
	}

	table, err := a.referenceFromRaw(ctx, epoch)
	if err != nil {
		return Table{}, "", err
	}
	return table, ReferenceSourceRawRecomputed, nil
}

func (a *Assembler) referenceFromRaw(ctx context.Context, epoch domain.Epoch) (Table, error) {
	records, err := FetchRawTrips(ctx, a.store, a.bucket, epoch)
	if err != nil {
		return Table{}, err
	}
	return CleanForTraining(records), nil
}

func (a *Assembler) buildCurrent(ctx context.Context, trigger time.Time) (Table, int, error) {
	windowStart := trigger.Add(-CurrentWindow)

	// The 24 hourly buckets span at most two day partitions; each partition is
	// listed once and logs are filtered to the window by their own timestamp.
	prefixes := make([]string, 0, 2)
	seen := make(map[string]struct{}, 2)
	for hour := 0; hour < int(CurrentWindow.Hours()); hour++ {
		prefix := domain.PredictionLogPrefix(trigger.Add(-time.Duration(hour) * time.Hour))
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		prefixes = append(prefixes, prefix)
	}

	rows := make([]Row, 0)
	skipped := 0
	for _, prefix := range prefixes {
		keys, err := a.store.List(ctx, a.bucket, prefix)
		if err != nil {
			return Table{}, 0, fmt.Errorf("list prediction logs %s: %w", prefix, err)
		}
		for _, key := range keys {
			var log PredictionLog
			if err := objectstore.GetJSON(ctx, a.store, a.bucket, key, &log); err != nil {
				a.logger.Warn("skipping unreadable prediction log", "key", key, "error", err)
				skipped++
				continue
			}
			ts, err := parseLogTime(log.Timestamp)
			if err != nil {
				a.logger.Warn("skipping prediction log with bad timestamp", "key", key, "error", err)
				skipped++
				continue
			}
			if ts.Before(windowStart) || ts.After(trigger) {
				continue
			}
			row := Row{
				PULocationID: log.Features.PULocationID,
				DOLocationID: log.Features.DOLocationID,
				TripDistance: log.Features.TripDistance,
				Target:       log.PredictedDuration,
			}
			if err := row.Validate(); err != nil {
				a.logger.Warn("skipping schema-violating prediction log", "key", key, "error", err)
				skipped++
				continue
			}
			rows = append(rows, row)
		}
	}
	return NewTable(rows), skipped, nil
}

func parseLogTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05.999999", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
	}
	return ts.UTC(), nil
}
