package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"PriceLens/internal/aggregator"
	"PriceLens/internal/model"
)

// DefaultProducts is the catalog used when none is configured.
var DefaultProducts = []model.Product{
	{ID: "milk", Name: "Milk", Unit: "1L"},
	{ID: "rice", Name: "Rice", Unit: "1kg"},
	{ID: "petrol", Name: "Petrol", Unit: "1L"},
	{ID: "grocery", Name: "Grocery basket", Unit: "basket"},
}

// Manager owns the product catalog and the reference prices used when a
// product has no recent reports.
type Manager struct {
	mu       sync.Mutex
	products []model.Product
	byID     map[string]model.Product
	state    *model.CatalogState
	filePath string
	logger   *zap.Logger
}

// NewManager creates a Manager, loading reference state from disk.
func NewManager(filePath string, products []model.Product, logger *zap.Logger) (*Manager, error) {
	if len(products) == 0 {
		products = DefaultProducts
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog: product with empty id")
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %q", id)
		}
		p.ID = id
		byID[id] = p
	}

	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("catalog: load state: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		products: append([]model.Product(nil), products...),
		byID:     byID,
		state:    state,
		filePath: filePath,
		logger:   logger,
	}
	if err := m.save(); err != nil {
		return nil, fmt.Errorf("catalog: save state: %w", err)
	}
	return m, nil
}

// Products returns the catalog in configured order.
func (m *Manager) Products() []model.Product {
	return append([]model.Product(nil), m.products...)
}

// Lookup returns the product with the given id.
func (m *Manager) Lookup(id string) (model.Product, bool) {
	p, ok := m.byID[strings.TrimSpace(id)]
	return p, ok
}

// Reference returns the price used for product when no reports can be
// aggregated: the last real median, else the catalog base price, else 0.
func (m *Manager) Reference(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.state.LastMedians[id]; ok && v > 0 {
		return v
	}
	return m.byID[id].BasePrice
}

// Request builds an aggregation request for any product id.
func (m *Manager) Request(id string) aggregator.Request {
	return aggregator.Request{Product: id, Reference: m.Reference(id)}
}

// Requests builds one aggregation request per catalog product.
func (m *Manager) Requests() []aggregator.Request {
	reqs := make([]aggregator.Request, len(m.products))
	for i, p := range m.products {
		reqs[i] = m.Request(p.ID)
	}
	return reqs
}

// Update stores the medians of non-degraded summaries as new references.
// It returns how many references changed.
func (m *Manager) Update(summaries map[string]model.AggregateSummary) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	changed := 0
	for _, id := range ids {
		s := summaries[id]
		// Reference prices are city-wide, so area-scoped summaries are skipped.
		if s.Degraded || s.Area != "" || !model.ValidPrice(s.MedianPrice) {
			continue
		}
		if m.state.LastMedians[id] != s.MedianPrice {
			m.state.LastMedians[id] = s.MedianPrice
			changed++
		}
	}
	m.state.LastRefreshAt = time.Now()

	if err := m.save(); err != nil {
		m.logger.Error("failed to save catalog state", zap.Error(err))
	}
	return changed
}

// State returns a copy of the reference state.
func (m *Manager) State() model.CatalogState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := *m.state
	st.LastMedians = make(map[string]float64, len(m.state.LastMedians))
	for k, v := range m.state.LastMedians {
		st.LastMedians[k] = v
	}
	return st
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
