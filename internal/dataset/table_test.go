package dataset

import (
	"testing"
	"time"
)

func TestValidationSplitTable(t *testing.T) {
	split := ValidationSplit{
		Schema: ValidationSplitSchemaV1,
		Records: []FeatureDict{
			{PULocationID: "132", DOLocationID: "138", TripDistance: 2.5},
			{PULocationID: "75", DOLocationID: "236", TripDistance: 5.1},
		},
		Targets: []float64{12.0, 18.5},
	}
	if err := split.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	table := split.Table()
	if table.Len() != 2 {
		t.Fatalf("rows=%d, want 2", table.Len())
	}
	if table.Rows[1].Target != 18.5 {
		t.Fatalf("target=%v, want 18.5", table.Rows[1].Target)
	}

	split.Targets = split.Targets[:1]
	if err := split.Validate(); err == nil {
		t.Fatal("records/targets mismatch accepted")
	}
}

func TestTableColumns(t *testing.T) {
	table := NewTable([]Row{
		{PULocationID: "132", DOLocationID: "138", TripDistance: 2.5, Target: 12},
		{PULocationID: "75", DOLocationID: "236", TripDistance: 5.1, Target: 18},
	})

	distances, err := table.Numerical(ColTripDistance)
	if err != nil {
		t.Fatalf("Numerical: %v", err)
	}
	if distances[0] != 2.5 || distances[1] != 5.1 {
		t.Fatalf("distances=%v", distances)
	}

	pickups, err := table.Categorical(ColPULocation)
	if err != nil {
		t.Fatalf("Categorical: %v", err)
	}
	if pickups[1] != "75" {
		t.Fatalf("pickups=%v", pickups)
	}

	if _, err := table.Numerical(ColPULocation); err == nil {
		t.Fatal("categorical column served as numerical")
	}
}

func TestTableEqualAndClone(t *testing.T) {
	table := NewTable([]Row{{PULocationID: "1", DOLocationID: "2", TripDistance: 1, Target: 5}})
	clone := table.Clone()
	if !table.Equal(clone) {
		t.Fatal("clone not row-for-row equal")
	}
	clone.Rows[0].Target = 99
	if table.Rows[0].Target != 5 {
		t.Fatal("clone shares row storage with original")
	}
}

func TestCleanForTraining(t *testing.T) {
	base := time.Date(2021, 7, 1, 10, 0, 0, 0, time.UTC)
	pu, do := int64(132), int64(138)
	dist := 2.5
	records := []RawTripRecord{
		// Kept: 15 minute trip.
		{PULocationID: &pu, DOLocationID: &do, TripDistance: &dist,
			PickupDatetime: base.UnixMicro(), DropoffDatetime: base.Add(15 * time.Minute).UnixMicro()},
		// Dropped: 30 second trip.
		{PULocationID: &pu, DOLocationID: &do, TripDistance: &dist,
			PickupDatetime: base.UnixMicro(), DropoffDatetime: base.Add(30 * time.Second).UnixMicro()},
		// Dropped: 2 hour trip.
		{PULocationID: &pu, DOLocationID: &do, TripDistance: &dist,
			PickupDatetime: base.UnixMicro(), DropoffDatetime: base.Add(2 * time.Hour).UnixMicro()},
		// Dropped: null pickup location.
		{PULocationID: nil, DOLocationID: &do, TripDistance: &dist,
			PickupDatetime: base.UnixMicro(), DropoffDatetime: base.Add(10 * time.Minute).UnixMicro()},
	}

	table := CleanForTraining(records)
	if table.Len() != 1 {
		t.Fatalf("rows=%d, want 1", table.Len())
	}
	row := table.Rows[0]
	if row.PULocationID != "132" || row.DOLocationID != "138" {
		t.Fatalf("location ids not cast to string: %+v", row)
	}
	if row.Target != 15 {
		t.Fatalf("target=%v, want 15", row.Target)
	}
}
