package calculator

import (
	"math"

	"PriceLens/internal/model"
)

// Trend estimates price movement from a most-recent-first price sequence.
// The first n/2 prices form the recent half, the rest the older half; with an
// odd length the extra price lands in the older half.
func Trend(prices []float64) model.Trend {
	if len(prices) < 2 {
		return model.Trend{Direction: model.TrendStable}
	}

	half := len(prices) / 2
	newMedian := Median(prices[:half])
	oldMedian := Median(prices[half:])

	t := model.Trend{Direction: model.TrendStable}
	switch {
	case newMedian > oldMedian:
		t.Direction = model.TrendUp
	case newMedian < oldMedian:
		t.Direction = model.TrendDown
	}
	if oldMedian != 0 {
		t.Percent = round1(math.Abs(newMedian-oldMedian) / oldMedian * 100)
	}
	return t
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
