package aggregator

import (
	"context"
	"sync"
	"time"

	"PriceLens/internal/model"
)

// MockStore returns fixed observations per product for development and testing.
// Products listed in Errors fail with the given error. A non-empty area keeps
// only observations reported from that area.
type MockStore struct {
	Observations map[string][]model.PriceObservation
	Errors       map[string]error
	Delay        time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockStore) FetchObservations(ctx context.Context, product, area string, _, limit int) ([]model.PriceObservation, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[product]++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err, ok := m.Errors[product]; ok {
		return nil, err
	}
	var out []model.PriceObservation
	for _, o := range m.Observations[product] {
		if area != "" && o.Area != area {
			continue
		}
		out = append(out, o)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Calls returns how many times product was fetched.
func (m *MockStore) Calls(product string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[product]
}
