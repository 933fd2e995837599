package calculator

import "PriceLens/internal/model"

const (
	highConfidenceMin   = 10
	mediumConfidenceMin = 5
)

// Confidence maps a post-filter sample size to a trust label.
func Confidence(count int) model.Confidence {
	switch {
	case count >= highConfidenceMin:
		return model.ConfidenceHigh
	case count >= mediumConfidenceMin:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
