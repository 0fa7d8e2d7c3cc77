package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Distribution describes a sample of values, ignoring NaN and infinities
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Describe computes a Distribution over the finite values
func Describe(values []float64) Distribution {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return Distribution{}
	}
	sort.Float64s(sorted)

	d := Distribution{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    sorted[0],
		Median: Percentile(sorted, 50),
		P95:    Percentile(sorted, 95),
		Max:    sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// Percentile returns the p-th percentile (0-100) of sorted values,
// interpolating linearly between closest ranks
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	index := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// LabelEntropy returns the Shannon entropy in bits of a label count histogram
func LabelEntropy(counts map[string]int) float64 {
	weights := make([]float64, 0, len(counts))
	var total float64
	for _, n := range counts {
		if n > 0 {
			weights = append(weights, float64(n))
			total += float64(n)
		}
	}
	if total == 0 {
		return 0
	}
	for i := range weights {
		weights[i] /= total
	}
	return stat.Entropy(weights) / math.Ln2
}
