package aggregator

import (
	"context"

	"PriceLens/internal/model"
)

// ObservationStore is the read capability the aggregator needs from storage.
// Results need not be sorted. An empty area matches every area, windowDays <= 0
// means no recency filter and limit <= 0 means no limit.
type ObservationStore interface {
	FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error)
}

// SummaryCache caches non-degraded summaries keyed by product, area and window.
type SummaryCache interface {
	Get(ctx context.Context, product, area string, windowDays int) (model.AggregateSummary, bool, error)
	Set(ctx context.Context, summary model.AggregateSummary) error
}
