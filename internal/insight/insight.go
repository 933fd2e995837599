package insight

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"PriceLens/internal/aggregator"
	"PriceLens/internal/classifier"
	"PriceLens/internal/model"
)

const defaultReportLimit = 20

// ReportSource returns a reporter's own observations, most recent first.
type ReportSource interface {
	FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error)
}

// Explainer turns a classified price into prose.
type Explainer interface {
	Explain(ctx context.Context, observed, median, areaAverage float64) string
}

// Insight is one of a reporter's observations judged against its market.
// AreaAverage is the mean price in the report's own area, or the product-wide
// mean when the report has no area or its area has no usable data.
type Insight struct {
	Observation model.PriceObservation `json:"observation"`
	Summary     model.AggregateSummary `json:"summary"`
	Status      model.PriceStatus      `json:"status"`
	AreaAverage float64                `json:"area_average,omitempty"`
}

// Service builds the per-reporter insight feed.
type Service struct {
	Reports    ReportSource
	Aggregator *aggregator.Aggregator
	Policy     classifier.Policy
	Explainer  Explainer
	Reference  func(product string) float64
	Limit      int
	logger     *zap.Logger
}

func NewService(reports ReportSource, agg *aggregator.Aggregator, policy classifier.Policy, explainer Explainer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Reports:    reports,
		Aggregator: agg,
		Policy:     policy,
		Explainer:  explainer,
		Limit:      defaultReportLimit,
		logger:     logger,
	}
}

// ForReporter classifies each of the reporter's recent reports against the
// current market median of its product. Each product is aggregated once.
func (s *Service) ForReporter(ctx context.Context, reporterID string) ([]Insight, error) {
	reports, err := s.Reports.FetchByReporter(ctx, reporterID, s.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch reports for %s: %w", reporterID, err)
	}
	if len(reports) == 0 {
		return nil, nil
	}

	reqs := make([]aggregator.Request, 0, len(reports))
	for _, r := range reports {
		req := aggregator.Request{Product: r.Product}
		if s.Reference != nil {
			req.Reference = s.Reference(r.Product)
		}
		reqs = append(reqs, req)
	}
	summaries := s.Aggregator.AggregateBatch(ctx, reqs)
	local := s.areaSummaries(ctx, reports)

	out := make([]Insight, 0, len(reports))
	for _, r := range reports {
		sum := summaries[r.Product]
		var median float64
		if sum.HasData() {
			median = sum.MedianPrice
		}
		areaAvg := sum.AveragePrice
		if a, ok := local[r.Area][r.Product]; ok && a.HasData() {
			areaAvg = a.AveragePrice
		}
		st := s.Policy.Classify(r.Price, median)
		if s.Explainer != nil && sum.HasData() {
			st.Explanation = s.Explainer.Explain(ctx, r.Price, sum.MedianPrice, areaAvg)
		}
		in := Insight{Observation: r, Summary: sum, Status: st}
		if sum.HasData() {
			in.AreaAverage = areaAvg
		}
		out = append(out, in)
	}

	s.logger.Debug("insights built",
		zap.String("reporter", reporterID),
		zap.Int("reports", len(out)),
		zap.Int("products", len(summaries)))
	return out, nil
}

// areaSummaries aggregates each product within each area the reporter
// reported from, keyed by area then product.
func (s *Service) areaSummaries(ctx context.Context, reports []model.PriceObservation) map[string]map[string]model.AggregateSummary {
	byArea := make(map[string][]aggregator.Request)
	for _, r := range reports {
		if r.Area == "" {
			continue
		}
		byArea[r.Area] = append(byArea[r.Area], aggregator.Request{Product: r.Product, Area: r.Area})
	}
	out := make(map[string]map[string]model.AggregateSummary, len(byArea))
	for area, reqs := range byArea {
		out[area] = s.Aggregator.AggregateBatch(ctx, reqs)
	}
	return out
}

// Tier is a reporter's contribution level.
type Tier string

const (
	TierBronze Tier = "Bronze"
	TierSilver Tier = "Silver"
	TierGold   Tier = "Gold"
)

const (
	baseTrustScore   = 1.0
	trustPerReport   = 0.1
	maxTrustScore    = 5.0
	silverMinReports = 6
	goldMinReports   = 11
)

// ReporterStats summarises how much a reporter has contributed.
type ReporterStats struct {
	ReporterID   string  `json:"reporter_id"`
	TotalReports int     `json:"total_reports"`
	TrustScore   float64 `json:"trust_score"`
	Tier         Tier    `json:"tier"`
}

// StatsFor derives the trust score and tier from a report count. The score
// grows by 0.1 per report from 1 and is capped at 5.
func StatsFor(reporterID string, totalReports int) ReporterStats {
	if totalReports < 0 {
		totalReports = 0
	}
	tier := TierBronze
	switch {
	case totalReports >= goldMinReports:
		tier = TierGold
	case totalReports >= silverMinReports:
		tier = TierSilver
	}
	return ReporterStats{
		ReporterID:   reporterID,
		TotalReports: totalReports,
		TrustScore:   math.Min(baseTrustScore+float64(totalReports)*trustPerReport, maxTrustScore),
		Tier:         tier,
	}
}

// Stats counts every report the reporter has made.
func (s *Service) Stats(ctx context.Context, reporterID string) (ReporterStats, error) {
	reports, err := s.Reports.FetchByReporter(ctx, reporterID, 0)
	if err != nil {
		return ReporterStats{}, fmt.Errorf("fetch reports for %s: %w", reporterID, err)
	}
	return StatsFor(reporterID, len(reports)), nil
}
