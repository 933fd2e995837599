package classifier

import (
	"fmt"
	"math"

	"PriceLens/internal/model"
)

// Classify labels price relative to median under the given policy. A median
// that is not positive means there is nothing to compare against.
func (p Policy) Classify(price, median float64) model.PriceStatus {
	st := model.PriceStatus{Price: price, MedianPrice: median}
	if median <= 0 {
		st.Label = model.StatusNewReport
		st.Explanation = "No market data yet for this product. Your report is the first reference point."
		return st
	}

	d := (price - median) / median
	st.Deviation = d
	switch {
	case d > p.Threshold:
		st.Label = p.AboveLabel
	case d < -p.Threshold:
		st.Label = p.BelowLabel
	default:
		st.Label = p.FairLabel
	}
	st.Explanation = p.explain(st)
	return st
}

// Classify uses DefaultPolicy.
func Classify(price, median float64) model.PriceStatus {
	return DefaultPolicy.Classify(price, median)
}

func (p Policy) explain(st model.PriceStatus) string {
	pct := math.Abs(st.Deviation) * 100
	switch st.Label {
	case p.AboveLabel:
		return fmt.Sprintf("%s: %.2f is %.1f%% above the market median of %.2f. Prices more than %.0f%% over the median usually reflect shop location, brand or stock; compare a nearby shop before buying again.",
			st.Label, st.Price, pct, st.MedianPrice, p.Threshold*100)
	case p.BelowLabel:
		return fmt.Sprintf("%s: %.2f is %.1f%% below the market median of %.2f. This is cheaper than most reports for the product.",
			st.Label, st.Price, pct, st.MedianPrice)
	default:
		return fmt.Sprintf("%s: %.2f is within %.0f%% of the market median of %.2f (%+.1f%%).",
			st.Label, st.Price, p.Threshold*100, st.MedianPrice, st.Deviation*100)
	}
}
