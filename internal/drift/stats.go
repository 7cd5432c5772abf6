// Package drift evaluates distribution shift between the reference and
// current datasets and turns the verdict into a workflow branch decision.
package drift

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestStat is one two-sample test outcome.
type TestStat struct {
	Statistic float64
	PValue    float64
}

// KSTest runs the two-sample Kolmogorov-Smirnov test with the asymptotic
// p-value approximation.
func KSTest(reference, current []float64) (TestStat, error) {
	if len(reference) == 0 || len(current) == 0 {
		return TestStat{}, errors.New("both samples must be non-empty")
	}

	ref := make([]float64, len(reference))
	copy(ref, reference)
	sort.Float64s(ref)
	cur := make([]float64, len(current))
	copy(cur, current)
	sort.Float64s(cur)

	d := stat.KolmogorovSmirnov(ref, nil, cur, nil)

	n1, n2 := float64(len(ref)), float64(len(cur))
	ne := n1 * n2 / (n1 + n2)
	lambda := (math.Sqrt(ne) + 0.12 + 0.11/math.Sqrt(ne)) * d
	return TestStat{Statistic: d, PValue: ksSurvival(lambda)}, nil
}

// ksSurvival evaluates the Kolmogorov distribution's survival function
// Q(lambda) = 2 * sum_{j>=1} (-1)^(j-1) * exp(-2 j^2 lambda^2).
func ksSurvival(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	sum := 0.0
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := math.Exp(-2 * float64(j*j) * lambda * lambda)
		sum += sign * term
		sign = -sign
		if term < 1e-12 {
			break
		}
	}
	p := 2 * sum
	return math.Max(0, math.Min(1, p))
}

// ChiSquareTest compares the current category frequencies against the
// reference distribution. A category seen only in the current sample is
// certain evidence of shift.
func ChiSquareTest(reference, current []string) (TestStat, error) {
	if len(reference) == 0 || len(current) == 0 {
		return TestStat{}, errors.New("both samples must be non-empty")
	}

	refCounts := make(map[string]int)
	for _, v := range reference {
		refCounts[v]++
	}
	curCounts := make(map[string]int)
	for _, v := range current {
		curCounts[v]++
	}

	categories := make([]string, 0, len(refCounts)+len(curCounts))
	seen := make(map[string]struct{}, len(refCounts)+len(curCounts))
	for v := range refCounts {
		seen[v] = struct{}{}
		categories = append(categories, v)
	}
	for v := range curCounts {
		if _, ok := seen[v]; !ok {
			categories = append(categories, v)
		}
	}
	sort.Strings(categories)

	refTotal := float64(len(reference))
	curTotal := float64(len(current))

	chi2 := 0.0
	for _, category := range categories {
		expected := float64(refCounts[category]) / refTotal * curTotal
		observed := float64(curCounts[category])
		if expected == 0 {
			if observed > 0 {
				return TestStat{Statistic: math.Inf(1), PValue: 0}, nil
			}
			continue
		}
		diff := observed - expected
		chi2 += diff * diff / expected
	}

	dof := len(categories) - 1
	if dof < 1 {
		// Single shared category: no room to shift.
		return TestStat{Statistic: chi2, PValue: 1}, nil
	}
	dist := distuv.ChiSquared{K: float64(dof)}
	return TestStat{Statistic: chi2, PValue: dist.Survival(chi2)}, nil
}
