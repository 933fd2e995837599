package classifier

import (
	"fmt"
	"strings"

	"PriceLens/internal/model"
)

// Policy decides how far a price may stray from the median before it is
// labelled above or below market.
type Policy struct {
	Name       string
	Threshold  float64 // fraction of the median
	AboveLabel string
	BelowLabel string
	FairLabel  string
}

// DefaultPolicy sits between the coarse and fine variants.
var DefaultPolicy = Policy{
	Name:       "default",
	Threshold:  0.15,
	AboveLabel: model.StatusAboveMarket,
	BelowLabel: model.StatusBelowMarket,
	FairLabel:  model.StatusMarketRate,
}

// CoarsePolicy flags only deviations beyond ±20%.
var CoarsePolicy = Policy{
	Name:       "coarse",
	Threshold:  0.20,
	AboveLabel: model.StatusAboveMarket,
	BelowLabel: model.StatusBelowMarket,
	FairLabel:  model.StatusMarketRate,
}

// FinePolicy flags deviations beyond ±10% and calls cheap reports a good deal.
var FinePolicy = Policy{
	Name:       "fine",
	Threshold:  0.10,
	AboveLabel: model.StatusAboveMarket,
	BelowLabel: model.StatusGoodDeal,
	FairLabel:  model.StatusFairPrice,
}

var policies = map[string]Policy{
	DefaultPolicy.Name: DefaultPolicy,
	CoarsePolicy.Name:  CoarsePolicy,
	FinePolicy.Name:    FinePolicy,
}

// PolicyByName resolves a named policy. A positive threshold overrides the
// policy's own threshold; an empty name selects DefaultPolicy.
func PolicyByName(name string, threshold float64) (Policy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultPolicy.Name
	}
	p, ok := policies[key]
	if !ok {
		return Policy{}, fmt.Errorf("unknown status policy %q", name)
	}
	if threshold > 0 {
		p.Threshold = threshold
	}
	return p, nil
}
