package domain

import (
	"fmt"
	"time"
)

// Object store layout. Every path is partitioned by epoch or run date so that
// concurrent backfill runs never collide.

func RawDataKey(e Epoch) string {
	return fmt.Sprintf("raw-data/%s.parquet", e)
}

func ModelKey(e Epoch) string {
	return fmt.Sprintf("models/%s/model.json", e)
}

func EncoderKey(e Epoch) string {
	return fmt.Sprintf("models/%s/encoder.json", e)
}

func ValidationSplitKey(e Epoch) string {
	return fmt.Sprintf("models/%s/validation.json", e)
}

func QualityReportKey(e Epoch, runDate string) string {
	return fmt.Sprintf("monitoring/data-quality/%s/%s.json", e, runDate)
}

func PerformanceReportKey(e Epoch, runDate string) string {
	return fmt.Sprintf("monitoring/model-performance/%s/%s.json", e, runDate)
}

func HealthReportKey(runDate string) string {
	return fmt.Sprintf("monitoring/lambda-health/%s.json", runDate)
}

func DriftResultsKey(runDate string) string {
	return fmt.Sprintf("monitoring/drift-results/%s.json", runDate)
}

// DriftReportKey lives in the reports bucket, not the data bucket.
func DriftReportKey(runDate string) string {
	return fmt.Sprintf("drift-reports/%s.html", runDate)
}

func SnapshotReferenceKey(runDate string) string {
	return fmt.Sprintf("monitoring/snapshots/%s/reference.json", runDate)
}

func SnapshotCurrentKey(runDate string) string {
	return fmt.Sprintf("monitoring/snapshots/%s/current.json", runDate)
}

func SnapshotManifestKey(runDate string) string {
	return fmt.Sprintf("monitoring/snapshots/%s/manifest.json", runDate)
}

// PredictionLogPrefix is the day partition holding inference request logs.
func PredictionLogPrefix(t time.Time) string {
	return fmt.Sprintf("predictions/%s/", t.UTC().Format("2006/01/02"))
}
