package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"PriceLens/internal/classifier"
	"PriceLens/internal/insight"
	"PriceLens/internal/model"
)

var (
	milk = model.Product{ID: "milk", Name: "Milk", Unit: "1L"}
	rice = model.Product{ID: "rice", Name: "Rice", Unit: "1kg"}
	f    = Formatter{Currency: "₹"}
)

func TestFormatDigest(t *testing.T) {
	sums := map[string]model.AggregateSummary{
		"milk": {Product: "milk", MedianPrice: 60, SampleSize: 12, RawCount: 13, Confidence: model.ConfidenceHigh,
			Trend: &model.Trend{Direction: model.TrendUp, Percent: 3.2}, WindowDays: 30},
		"rice": {Product: "rice", MedianPrice: 52, Confidence: model.ConfidenceLow, WindowDays: 30,
			Degraded: true, Reason: model.ReasonDataAbsent},
	}
	out := f.FormatDigest([]model.Product{milk, rice}, sums, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "2026-10-18")
	assert.Contains(t, out, "Milk (1L): ₹60.00 | ↑ 3.2% | High confidence (12 reports)")
	assert.Contains(t, out, "Rice (1kg): ~₹52.00 (reference, no recent reports)")
	assert.Contains(t, out, "last 30 days")
	assert.Less(t, strings.Index(out, "Milk"), strings.Index(out, "Rice"))
}

func TestFormatSummary(t *testing.T) {
	out := f.FormatSummary(milk, model.AggregateSummary{
		MedianPrice: 60, AveragePrice: 60.4, SampleSize: 6, RawCount: 7,
		Confidence: model.ConfidenceMedium, Trend: &model.Trend{Direction: model.TrendStable}, WindowDays: 30,
	})
	assert.Contains(t, out, "Median: ₹60.00")
	assert.Contains(t, out, "Trend: → stable")
	assert.Contains(t, out, "Medium (6 of 7 reports used)")

	out = f.FormatSummary(milk, model.AggregateSummary{Degraded: true, Reason: model.ReasonCollaboratorFailure})
	assert.Contains(t, out, "No recent community reports")
	assert.Contains(t, out, "temporarily unavailable")
	assert.NotContains(t, out, "Reference price")
}

func TestFormatCheck(t *testing.T) {
	st := classifier.DefaultPolicy.Classify(75, 60)
	out := f.FormatCheck(milk, st, model.AggregateSummary{Confidence: model.ConfidenceHigh})
	assert.Contains(t, out, "🔴 <b>Above Market</b>")
	assert.Contains(t, out, "Market median: ₹60.00 (+25.0%)")

	st = classifier.DefaultPolicy.Classify(75, 0)
	out = f.FormatCheck(milk, st, model.AggregateSummary{})
	assert.Contains(t, out, "New Report")
	assert.NotContains(t, out, "Market median")
}

func TestFormatInsights(t *testing.T) {
	out := f.FormatInsights("u1", nil, nil)
	assert.Contains(t, out, "No price reports yet")
	assert.NotContains(t, out, "trust")

	stats := insight.StatsFor("u1", 7)
	out = f.FormatInsights("u1", &stats, []insight.Insight{{
		Observation: model.PriceObservation{Product: "milk", Shop: "A&B Stores", Price: 75, Area: "Indiranagar"},
		Status:      model.PriceStatus{Label: model.StatusAboveMarket, MedianPrice: 60, Explanation: "pricey"},
		AreaAverage: 63,
	}})
	assert.Contains(t, out, "A&amp;B Stores")
	assert.Contains(t, out, "median ₹60.00, Indiranagar average ₹63.00")
	assert.Contains(t, out, "🏅 Silver | 7 reports | trust 1.7/5")
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "HTML", body["parse_mode"])
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", srv.URL, zaptest.NewLogger(t))
	require.NoError(t, n.SendWithRetry(context.Background(), "hello", 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendWithRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", srv.URL, zaptest.NewLogger(t))
	err := n.SendWithRetry(context.Background(), "hello", 0)
	assert.ErrorContains(t, err, "all 1 retries exhausted")
}

func TestDispatch(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		sent = append(sent, body["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", srv.URL, zaptest.NewLogger(t))
	raw := `[{"update_id":7,"message":{"text":" /prices "}},{"update_id":8},{"update_id":9,"message":{"text":"/quiet"}}]`
	var updates []telegramUpdate
	require.NoError(t, json.Unmarshal([]byte(raw), &updates))

	next := n.dispatch(context.Background(), updates, 0, func(_ context.Context, cmd string) string {
		if cmd == "/prices" {
			return "digest"
		}
		return ""
	})
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"digest"}, sent)
}
