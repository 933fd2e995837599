package model

// Confidence is a qualitative trust label derived from sample size.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// TrendDirection is the directional movement between two sub-samples.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend compares the median of recent prices to the median of older ones.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Percent   float64        `json:"percent"` // rounded to one decimal
}

// DegradeReason says why a summary was produced without real data.
type DegradeReason string

const (
	ReasonNone                DegradeReason = ""
	ReasonDataAbsent          DegradeReason = "data_absent"
	ReasonCollaboratorFailure DegradeReason = "collaborator_failure"
)

// AggregateSummary is the aggregation result for one product.
type AggregateSummary struct {
	Product      string        `json:"product"`
	Area         string        `json:"area,omitempty"` // empty when aggregated across every area
	MedianPrice  float64       `json:"median_price"`
	AveragePrice float64       `json:"average_price"`
	SampleSize   int           `json:"sample_size"` // after outlier removal
	RawCount     int           `json:"raw_count"`
	Confidence   Confidence    `json:"confidence"`
	Trend        *Trend        `json:"trend,omitempty"`
	WindowDays   int           `json:"window_days"`
	Degraded     bool          `json:"degraded"`
	Reason       DegradeReason `json:"reason,omitempty"`
}

// HasData reports whether the summary was computed from real observations.
func (s *AggregateSummary) HasData() bool {
	return !s.Degraded && s.SampleSize > 0
}
