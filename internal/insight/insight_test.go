package insight

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"PriceLens/internal/aggregator"
	"PriceLens/internal/classifier"
	"PriceLens/internal/model"
	"PriceLens/internal/store"
)

type echoExplainer struct {
	calls    int
	averages []float64
}

func (e *echoExplainer) Explain(_ context.Context, observed, median, avg float64) string {
	e.calls++
	e.averages = append(e.averages, avg)
	return "explained"
}

type failingReports struct{}

func (failingReports) FetchByReporter(context.Context, string, int) ([]model.PriceObservation, error) {
	return nil, errors.New("db down")
}

func seed(t *testing.T, s *store.MemoryStore, product, reporter, shop string, price float64, age time.Duration) {
	t.Helper()
	seedArea(t, s, product, reporter, shop, "", price, age)
}

func seedArea(t *testing.T, s *store.MemoryStore, product, reporter, shop, area string, price float64, age time.Duration) {
	t.Helper()
	require.NoError(t, s.Add(context.Background(), &model.PriceObservation{
		Product: product, Price: price, Shop: shop, ReporterID: reporter, Area: area,
		ObservedAt: s.Now().Add(-age),
	}))
}

func TestForReporter(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	for i, p := range []float64{60, 61, 59, 60, 62} {
		seed(t, s, "milk", "other", string(rune('A'+i)), p, time.Duration(i+1)*time.Hour)
	}
	seed(t, s, "milk", "me", "Corner", 75, 30*time.Minute)
	seed(t, s, "saffron", "me", "Corner", 900, 2*time.Hour)

	agg := aggregator.New(s, aggregator.Options{WindowDays: 30}, zaptest.NewLogger(t))
	ex := &echoExplainer{}
	svc := NewService(s, agg, classifier.DefaultPolicy, ex, zaptest.NewLogger(t))

	got, err := svc.ForReporter(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, got, 2)

	milk := got[0]
	assert.Equal(t, "milk", milk.Observation.Product)
	assert.Equal(t, 60.5, milk.Summary.MedianPrice)
	assert.Equal(t, model.StatusAboveMarket, milk.Status.Label)
	assert.Equal(t, "explained", milk.Status.Explanation)

	// The reporter is the only source for saffron, so the market is their own report.
	saffron := got[1]
	assert.Equal(t, model.StatusMarketRate, saffron.Status.Label)
	assert.Equal(t, 2, ex.calls)
}

func TestForReporterNoMarketData(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	seed(t, s, "milk", "me", "Corner", 75, 40*24*time.Hour)

	agg := aggregator.New(s, aggregator.Options{WindowDays: 30}, zaptest.NewLogger(t))
	ex := &echoExplainer{}
	svc := NewService(s, agg, classifier.DefaultPolicy, ex, zaptest.NewLogger(t))

	got, err := svc.ForReporter(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusNewReport, got[0].Status.Label)
	assert.True(t, got[0].Summary.Degraded)
	assert.Equal(t, 0, ex.calls)
}

func TestForReporterEmpty(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s, aggregator.New(s, aggregator.Options{}, nil), classifier.DefaultPolicy, nil, nil)
	got, err := svc.ForReporter(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForReporterFetchError(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(failingReports{}, aggregator.New(s, aggregator.Options{}, nil), classifier.DefaultPolicy, nil, nil)
	_, err := svc.ForReporter(context.Background(), "me")
	assert.ErrorContains(t, err, "db down")
}

func TestForReporterUsesAreaAverage(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	seedArea(t, s, "milk", "a", "A", "Indiranagar", 64, time.Hour)
	seedArea(t, s, "milk", "b", "B", "Indiranagar", 66, 2*time.Hour)
	seedArea(t, s, "milk", "c", "C", "Whitefield", 56, 3*time.Hour)
	seedArea(t, s, "milk", "d", "D", "Whitefield", 58, 4*time.Hour)
	seedArea(t, s, "milk", "me", "Corner", "Indiranagar", 65, 30*time.Minute)
	seed(t, s, "milk", "me", "Online", 61, 5*time.Hour)

	agg := aggregator.New(s, aggregator.Options{WindowDays: 30}, zaptest.NewLogger(t))
	ex := &echoExplainer{}
	svc := NewService(s, agg, classifier.DefaultPolicy, ex, zaptest.NewLogger(t))

	got, err := svc.ForReporter(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Market median is product-wide; the average handed to the explainer is local.
	assert.Equal(t, 62.5, got[0].Summary.MedianPrice)
	assert.Equal(t, 65.0, got[0].AreaAverage)
	assert.InDelta(t, 61.67, got[1].AreaAverage, 0.01, "no area falls back to the product-wide mean")
	assert.Equal(t, []float64{65, got[1].AreaAverage}, ex.averages)
}

func TestStatsFor(t *testing.T) {
	tests := []struct {
		reports int
		trust   float64
		tier    Tier
	}{
		{0, 1.0, TierBronze},
		{1, 1.1, TierBronze},
		{5, 1.5, TierBronze},
		{6, 1.6, TierSilver},
		{10, 2.0, TierSilver},
		{11, 2.1, TierGold},
		{40, 5.0, TierGold},
		{41, 5.0, TierGold},
		{500, 5.0, TierGold},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d reports", tt.reports), func(t *testing.T) {
			st := StatsFor("u1", tt.reports)
			assert.Equal(t, tt.reports, st.TotalReports)
			assert.InDelta(t, tt.trust, st.TrustScore, 1e-9)
			assert.Equal(t, tt.tier, st.Tier)
		})
	}
}

func TestStats(t *testing.T) {
	s := store.NewMemoryStore()
	now := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }
	for i := 0; i < 25; i++ {
		seed(t, s, "milk", "me", fmt.Sprintf("Shop %d", i), 60, time.Duration(i)*time.Hour)
	}
	seed(t, s, "milk", "other", "Shop 0", 60, time.Hour)

	svc := NewService(s, aggregator.New(s, aggregator.Options{}, nil), classifier.DefaultPolicy, nil, nil)
	st, err := svc.Stats(context.Background(), "me")
	require.NoError(t, err)
	assert.Equal(t, 25, st.TotalReports, "stats count every report, not just the feed limit")
	assert.Equal(t, TierGold, st.Tier)
	assert.InDelta(t, 3.5, st.TrustScore, 1e-9)

	_, err = NewService(failingReports{}, nil, classifier.DefaultPolicy, nil, nil).Stats(context.Background(), "me")
	assert.ErrorContains(t, err, "db down")
}
