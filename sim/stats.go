package sim

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// quantileNearestRank computes the p-quantile (p in [0,1]) of vals using
// gonum/stat's empirical (nearest-rank) interpolation. vals need not be
// sorted on entry; a copy is sorted in place. Returns 0 for an empty input.
func quantileNearestRank(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
