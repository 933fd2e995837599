package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"PriceLens/internal/model"
)

// ErrDuplicateReport is returned by Add when the reporter already reported the
// same product at the same shop on the same day.
var ErrDuplicateReport = errors.New("product already reported for this shop today")

// Store persists price observations and aggregation history.
type Store interface {
	// FetchObservations returns valid observations for product, most recent
	// first. An empty area matches every area. windowDays <= 0 disables the
	// recency filter; limit <= 0 disables the limit.
	FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error)
	// FetchByReporter returns a reporter's observations, most recent first.
	FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error)
	// Add validates and stores a new observation, filling ID and ObservedAt when empty.
	Add(ctx context.Context, obs *model.PriceObservation) error
	// RecordSummary appends a summary to the aggregation history.
	RecordSummary(ctx context.Context, s model.AggregateSummary) error
	Close() error
}

// prepare normalises and validates obs before insertion.
func prepare(obs *model.PriceObservation, now time.Time) error {
	obs.Product = strings.TrimSpace(obs.Product)
	obs.Shop = strings.TrimSpace(obs.Shop)
	obs.ReporterID = strings.TrimSpace(obs.ReporterID)
	obs.Area = strings.TrimSpace(obs.Area)
	if err := obs.Validate(); err != nil {
		return err
	}
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = now
	}
	obs.ObservedAt = obs.ObservedAt.UTC()
	return nil
}

// dayBounds returns the UTC calendar day containing t.
func dayBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func windowStart(now time.Time, windowDays int) time.Time {
	return now.Add(-time.Duration(windowDays) * 24 * time.Hour)
}
