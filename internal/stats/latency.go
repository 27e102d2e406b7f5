package stats

import (
	"slices"

	"github.com/suar-net/suar-probe/internal/model"
)

// CalculateLatencySummary returns nearest-rank percentiles over latencies.
// The input slice is not modified.
func CalculateLatencySummary(latencies []int64) model.LatencySummary {
	if len(latencies) == 0 {
		return model.LatencySummary{}
	}

	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	slices.Sort(sorted)

	return model.LatencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		P50: Percentile(sorted, 50),
		P90: Percentile(sorted, 90),
		P95: Percentile(sorted, 95),
		P99: Percentile(sorted, 99),
	}
}

// Percentile expects sorted input.
func Percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
