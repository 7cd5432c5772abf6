package drift

import (
	"math"
	"math/rand"
	"testing"
)

func normalSample(rng *rand.Rand, n int, mean, std float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()*std + mean
	}
	return out
}

func TestKSTestIdenticalSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sample := normalSample(rng, 400, 5, 2)

	ts, err := KSTest(sample, sample)
	if err != nil {
		t.Fatalf("KSTest: %v", err)
	}
	if ts.Statistic != 0 {
		t.Fatalf("statistic=%v, want 0 for identical samples", ts.Statistic)
	}
	if ts.PValue < 0.99 {
		t.Fatalf("p=%v, want ~1 for identical samples", ts.PValue)
	}
}

func TestKSTestShiftedSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	reference := normalSample(rng, 400, 5, 2)
	current := normalSample(rng, 400, 15, 2)

	ts, err := KSTest(reference, current)
	if err != nil {
		t.Fatalf("KSTest: %v", err)
	}
	if ts.PValue >= 0.05 {
		t.Fatalf("p=%v, want < 0.05 for a 5-sigma mean shift", ts.PValue)
	}
	if ts.Statistic < 0.5 {
		t.Fatalf("statistic=%v, want large for a 5-sigma mean shift", ts.Statistic)
	}
}

func TestKSTestRejectsEmptySample(t *testing.T) {
	if _, err := KSTest(nil, []float64{1}); err == nil {
		t.Fatal("empty reference accepted")
	}
	if _, err := KSTest([]float64{1}, nil); err == nil {
		t.Fatal("empty current accepted")
	}
}

func categoricalSample(counts map[string]int) []string {
	out := make([]string, 0)
	for value, n := range counts {
		for i := 0; i < n; i++ {
			out = append(out, value)
		}
	}
	return out
}

func TestChiSquareTestIdenticalDistributions(t *testing.T) {
	reference := categoricalSample(map[string]int{"132": 300, "138": 200, "161": 100})

	ts, err := ChiSquareTest(reference, reference)
	if err != nil {
		t.Fatalf("ChiSquareTest: %v", err)
	}
	if ts.Statistic != 0 {
		t.Fatalf("statistic=%v, want 0 for identical distributions", ts.Statistic)
	}
	if ts.PValue < 0.99 {
		t.Fatalf("p=%v, want ~1 for identical distributions", ts.PValue)
	}
}

func TestChiSquareTestSkewedDistribution(t *testing.T) {
	reference := categoricalSample(map[string]int{"132": 300, "138": 200, "161": 100})
	current := categoricalSample(map[string]int{"132": 580, "138": 10, "161": 10})

	ts, err := ChiSquareTest(reference, current)
	if err != nil {
		t.Fatalf("ChiSquareTest: %v", err)
	}
	if ts.PValue >= 0.05 {
		t.Fatalf("p=%v, want < 0.05 for a heavily skewed distribution", ts.PValue)
	}
}

func TestChiSquareTestNovelCategory(t *testing.T) {
	reference := categoricalSample(map[string]int{"132": 100, "138": 100})
	current := categoricalSample(map[string]int{"132": 100, "999": 100})

	ts, err := ChiSquareTest(reference, current)
	if err != nil {
		t.Fatalf("ChiSquareTest: %v", err)
	}
	if ts.PValue != 0 {
		t.Fatalf("p=%v, want 0 for a category absent from the reference", ts.PValue)
	}
	if !math.IsInf(ts.Statistic, 1) {
		t.Fatalf("statistic=%v, want +Inf for a category absent from the reference", ts.Statistic)
	}
}

func TestChiSquareTestSingleCategory(t *testing.T) {
	reference := categoricalSample(map[string]int{"132": 100})
	current := categoricalSample(map[string]int{"132": 50})

	ts, err := ChiSquareTest(reference, current)
	if err != nil {
		t.Fatalf("ChiSquareTest: %v", err)
	}
	if ts.PValue != 1 {
		t.Fatalf("p=%v, want 1 when only one shared category exists", ts.PValue)
	}
}
