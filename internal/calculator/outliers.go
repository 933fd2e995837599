package calculator

import "math"

// DefaultOutlierThreshold is the maximum relative deviation from the median (40%).
const DefaultOutlierThreshold = 0.4

// minOutlierSample is the smallest sample the filter will touch.
const minOutlierSample = 3

// RemoveOutliers drops prices whose relative deviation from the sample median
// exceeds threshold. Samples smaller than three are returned unchanged, as is
// any sample whose median is not positive. Retained prices keep their order.
func RemoveOutliers(prices []float64, threshold float64) []float64 {
	if len(prices) < minOutlierSample {
		return prices
	}
	median := Median(prices)
	if median <= 0 {
		return prices
	}

	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.Abs(p-median)/median <= threshold {
			kept = append(kept, p)
		}
	}
	return kept
}
