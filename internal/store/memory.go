package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"PriceLens/internal/model"
)

// MemoryStore keeps observations in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	obs       []model.PriceObservation
	summaries []model.AggregateSummary

	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now}
}

func (m *MemoryStore) FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cutoff time.Time
	if windowDays > 0 {
		cutoff = windowStart(m.Now(), windowDays)
	}
	var out []model.PriceObservation
	for _, o := range m.obs {
		if o.Product != product || !model.ValidPrice(o.Price) {
			continue
		}
		if area != "" && o.Area != area {
			continue
		}
		if windowDays > 0 && o.ObservedAt.Before(cutoff) {
			continue
		}
		out = append(out, o)
	}
	return newestFirst(out, limit), nil
}

func (m *MemoryStore) FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.PriceObservation
	for _, o := range m.obs {
		if o.ReporterID == reporterID && model.ValidPrice(o.Price) {
			out = append(out, o)
		}
	}
	return newestFirst(out, limit), nil
}

func (m *MemoryStore) Add(ctx context.Context, obs *model.PriceObservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepare(obs, m.Now()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	start, end := dayBounds(obs.ObservedAt)
	for _, o := range m.obs {
		if o.ReporterID == obs.ReporterID && o.Shop == obs.Shop && o.Product == obs.Product &&
			!o.ObservedAt.Before(start) && o.ObservedAt.Before(end) {
			return ErrDuplicateReport
		}
	}
	m.obs = append(m.obs, *obs)
	return nil
}

func (m *MemoryStore) RecordSummary(_ context.Context, s model.AggregateSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return nil
}

// Summaries returns the recorded aggregation history.
func (m *MemoryStore) Summaries() []model.AggregateSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.AggregateSummary(nil), m.summaries...)
}

func (m *MemoryStore) Close() error { return nil }

func newestFirst(obs []model.PriceObservation, limit int) []model.PriceObservation {
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].ObservedAt.Equal(obs[j].ObservedAt) {
			return obs[i].ObservedAt.After(obs[j].ObservedAt)
		}
		return obs[i].ID < obs[j].ID
	})
	if limit > 0 && len(obs) > limit {
		obs = obs[:limit]
	}
	return obs
}
