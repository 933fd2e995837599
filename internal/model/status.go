package model

// Status labels. Which of them a classifier emits depends on its policy.
const (
	StatusAboveMarket = "Above Market"
	StatusBelowMarket = "Below Market"
	StatusMarketRate  = "Market Rate"
	StatusFairPrice   = "Fair Price"
	StatusGoodDeal    = "Good Deal"
	StatusNewReport   = "New Report"
)

// PriceStatus classifies one observed price against a reference median.
type PriceStatus struct {
	Label       string  `json:"label"`
	Price       float64 `json:"price"`
	MedianPrice float64 `json:"median_price"`
	Deviation   float64 `json:"deviation"` // (price - median) / median
	Explanation string  `json:"explanation"`
}
