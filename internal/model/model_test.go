package model

import "testing"

func testBundle() Bundle {
	return Bundle{
		Model: LinearModel{
			Schema:    ModelSchemaV1,
			Intercept: 5,
			Weights:   []float64{2, 3, 4},
		},
		Encoder: DictEncoder{
			Schema: EncoderSchemaV1,
			Vocabulary: map[string]int{
				"PULocationID=132": 0,
				"DOLocationID=138": 1,
				"trip_distance":    2,
			},
		},
	}
}

func TestBundlePredict(t *testing.T) {
	bundle := testBundle()
	if err := bundle.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := bundle.Predict(
		map[string]string{"PULocationID": "132", "DOLocationID": "138"},
		map[string]float64{"trip_distance": 2.5},
	)
	want := 5 + 2.0 + 3.0 + 4*2.5
	if got != want {
		t.Fatalf("Predict=%v, want %v", got, want)
	}
}

func TestTransformUnknownCategory(t *testing.T) {
	bundle := testBundle()
	x := bundle.Encoder.Transform(
		map[string]string{"PULocationID": "999", "DOLocationID": "138"},
		map[string]float64{"trip_distance": 1},
	)
	if x[0] != 0 {
		t.Fatalf("unseen category encoded as %v, want 0", x[0])
	}
	if x[1] != 1 {
		t.Fatalf("known category encoded as %v, want 1", x[1])
	}
}

func TestBundleValidateMismatch(t *testing.T) {
	bundle := testBundle()
	bundle.Model.Weights = []float64{1}
	if err := bundle.Validate(); err == nil {
		t.Fatal("weight/vocabulary size mismatch accepted")
	}
}
