package calculator

import "sort"

// Median returns the statistical median of prices, or 0 when prices is empty.
// The input slice is not modified.
func Median(prices []float64) float64 {
	n := len(prices)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, prices)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 != 0 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Mean returns the arithmetic mean of prices, or 0 when prices is empty.
func Mean(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}
