// Package stats summarizes how cameras spread over clusters.
package stats

import (
	"math"
	"slices"
)

// Summary describes a distribution of group sizes
type Summary struct {
	Groups int     `json:"groups"`
	Min    float64 `json:"min"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	// Evenness is the Shannon entropy of the group shares divided by its
	// maximum, so 1 means every group is the same size.
	Evenness float64 `json:"evenness"`
}

// Summarize computes a Summary over sizes
func Summarize(sizes []float64) Summary {
	if len(sizes) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(sizes)
	slices.Sort(sorted)

	return Summary{
		Groups:   len(sorted),
		Min:      sorted[0],
		P50:      quantileSorted(sorted, 0.5),
		P90:      quantileSorted(sorted, 0.9),
		Max:      sorted[len(sorted)-1],
		Mean:     Mean(sorted),
		Evenness: NormalizedEntropy(sorted),
	}
}

// Quantile calculates the q-th quantile (0 <= q <= 1) with linear
// interpolation between closest ranks
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	q = math.Max(0, math.Min(1, q))

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Mean calculates the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// NormalizedEntropy is the Shannon entropy of values taken as frequencies,
// divided by log2(n). Fewer than two groups give 0.
func NormalizedEntropy(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum <= 0 {
		return 0
	}

	var entropy float64
	for _, v := range values {
		if v > 0 {
			p := v / sum
			entropy -= p * math.Log2(p)
		}
	}
	return entropy / math.Log2(float64(len(values)))
}
