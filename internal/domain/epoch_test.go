package domain

import (
	"testing"
	"time"
)

func TestResolveEpochDeterministic(t *testing.T) {
	trigger := time.Date(2023, 7, 1, 6, 30, 0, 0, time.UTC)
	first := ResolveEpoch(trigger)
	for i := 0; i < 10; i++ {
		if got := ResolveEpoch(trigger); got != first {
			t.Fatalf("ResolveEpoch not deterministic: %v != %v", got, first)
		}
	}
	if first.Year != 2021 || first.Month != time.July {
		t.Fatalf("epoch=%v, want 2021-07", first)
	}
	if first.String() != "2021-07" {
		t.Fatalf("String=%q, want 2021-07", first.String())
	}
}

func TestResolveEpochNormalizesZone(t *testing.T) {
	utc := time.Date(2023, 8, 2, 0, 30, 0, 0, time.UTC)
	shifted := utc.In(time.FixedZone("plus2", 2*3600))
	if ResolveEpoch(utc) != ResolveEpoch(shifted) {
		t.Fatal("epoch depends on trigger time zone")
	}
}

func TestNewExecutionContext(t *testing.T) {
	trigger := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	ec, err := NewExecutionContext("run-1", trigger)
	if err != nil {
		t.Fatalf("NewExecutionContext: %v", err)
	}
	if ec.Epoch.String() != "2021-07" {
		t.Fatalf("epoch=%s, want 2021-07", ec.Epoch)
	}
	if ec.RunDate() != "2023-07-01" {
		t.Fatalf("run date=%q, want 2023-07-01", ec.RunDate())
	}

	if _, err := NewExecutionContext("  ", trigger); err == nil {
		t.Fatal("blank run id accepted")
	}
	if _, err := NewExecutionContext("run-1", time.Time{}); err == nil {
		t.Fatal("zero trigger accepted")
	}
}

func TestKeysArePartitioned(t *testing.T) {
	epoch := Epoch{Year: 2021, Month: time.July}
	if got := RawDataKey(epoch); got != "raw-data/2021-07.parquet" {
		t.Fatalf("RawDataKey=%q", got)
	}
	if got := QualityReportKey(epoch, "2023-07-01"); got != "monitoring/data-quality/2021-07/2023-07-01.json" {
		t.Fatalf("QualityReportKey=%q", got)
	}
	if got := PredictionLogPrefix(time.Date(2023, 7, 1, 13, 0, 0, 0, time.UTC)); got != "predictions/2023/07/01/" {
		t.Fatalf("PredictionLogPrefix=%q", got)
	}
}
