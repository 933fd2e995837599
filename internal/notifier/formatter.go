package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"PriceLens/internal/insight"
	"PriceLens/internal/model"
)

// Formatter renders summaries and statuses as Telegram HTML messages.
type Formatter struct {
	Currency string
}

func (f Formatter) price(v float64) string {
	return fmt.Sprintf("%s%.2f", f.Currency, v)
}

func trendArrow(t *model.Trend) string {
	if t == nil {
		return "–"
	}
	switch t.Direction {
	case model.TrendUp:
		return fmt.Sprintf("↑ %.1f%%", t.Percent)
	case model.TrendDown:
		return fmt.Sprintf("↓ %.1f%%", t.Percent)
	default:
		return "→ stable"
	}
}

func productTitle(p model.Product) string {
	if p.Unit == "" {
		return html.EscapeString(p.Name)
	}
	return html.EscapeString(fmt.Sprintf("%s (%s)", p.Name, p.Unit))
}

// summaryLine is the one-line rendering used in the digest.
func (f Formatter) summaryLine(p model.Product, s model.AggregateSummary) string {
	if !s.HasData() {
		if s.MedianPrice > 0 {
			return fmt.Sprintf("• %s: ~%s (reference, no recent reports)", productTitle(p), f.price(s.MedianPrice))
		}
		return fmt.Sprintf("• %s: no recent reports", productTitle(p))
	}
	return fmt.Sprintf("• %s: %s | %s | %s confidence (%d reports)",
		productTitle(p), f.price(s.MedianPrice), trendArrow(s.Trend), s.Confidence, s.SampleSize)
}

// FormatDigest formats the catalog-wide price digest.
func (f Formatter) FormatDigest(products []model.Product, summaries map[string]model.AggregateSummary, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🛒 <b>PriceLens market prices</b> | %s\n\n", now.Format("2006-01-02")))
	window := 0
	for _, p := range products {
		s, ok := summaries[p.ID]
		if !ok {
			continue
		}
		window = s.WindowDays
		b.WriteString(f.summaryLine(p, s))
		b.WriteString("\n")
	}
	if window > 0 {
		b.WriteString(fmt.Sprintf("\nMedians of community reports from the last %d days.", window))
	}
	return b.String()
}

// FormatSummary formats one product's summary in detail.
func (f Formatter) FormatSummary(p model.Product, s model.AggregateSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>%s</b>\n\n", productTitle(p)))
	if !s.HasData() {
		b.WriteString("No recent community reports.\n")
		if s.MedianPrice > 0 {
			b.WriteString(fmt.Sprintf("Reference price: %s\n", f.price(s.MedianPrice)))
		}
		if s.Reason == model.ReasonCollaboratorFailure {
			b.WriteString("⚠️ Price data is temporarily unavailable.\n")
		}
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Median: %s\n", f.price(s.MedianPrice)))
	b.WriteString(fmt.Sprintf("Average: %s\n", f.price(s.AveragePrice)))
	b.WriteString(fmt.Sprintf("Trend: %s\n", trendArrow(s.Trend)))
	b.WriteString(fmt.Sprintf("Confidence: %s (%d of %d reports used)\n", s.Confidence, s.SampleSize, s.RawCount))
	if s.WindowDays > 0 {
		b.WriteString(fmt.Sprintf("Window: last %d days\n", s.WindowDays))
	}
	return b.String()
}

func statusIcon(label string) string {
	switch label {
	case model.StatusAboveMarket:
		return "🔴"
	case model.StatusBelowMarket, model.StatusGoodDeal:
		return "🟢"
	case model.StatusNewReport:
		return "🆕"
	default:
		return "🟡"
	}
}

// FormatCheck formats a price check against the market.
func (f Formatter) FormatCheck(p model.Product, st model.PriceStatus, s model.AggregateSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s\n\n", statusIcon(st.Label), html.EscapeString(st.Label), productTitle(p)))
	b.WriteString(fmt.Sprintf("Your price: %s\n", f.price(st.Price)))
	if st.MedianPrice > 0 {
		b.WriteString(fmt.Sprintf("Market median: %s (%+.1f%%)\n", f.price(st.MedianPrice), st.Deviation*100))
		b.WriteString(fmt.Sprintf("Confidence: %s\n", s.Confidence))
	}
	if st.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(st.Explanation))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatInsights formats a reporter's insight feed. stats may be nil.
func (f Formatter) FormatInsights(reporterID string, stats *insight.ReporterStats, items []insight.Insight) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💡 <b>Price insights</b> | %s\n", html.EscapeString(reporterID)))
	if stats != nil {
		b.WriteString(fmt.Sprintf("🏅 %s | %d reports | trust %.1f/5\n", stats.Tier, stats.TotalReports, stats.TrustScore))
	}
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString("No price reports yet. Start reporting prices to see insights!")
		return b.String()
	}
	for _, it := range items {
		o := it.Observation
		b.WriteString(fmt.Sprintf("%s <b>%s</b> at %s: %s (%s)\n",
			statusIcon(it.Status.Label),
			html.EscapeString(o.Product),
			html.EscapeString(o.Shop),
			f.price(o.Price),
			html.EscapeString(it.Status.Label)))
		if it.Status.MedianPrice > 0 {
			b.WriteString(fmt.Sprintf("   median %s", f.price(it.Status.MedianPrice)))
			if o.Area != "" && it.AreaAverage > 0 {
				b.WriteString(fmt.Sprintf(", %s average %s", html.EscapeString(o.Area), f.price(it.AreaAverage)))
			}
			b.WriteString("\n")
		}
		if it.Status.Explanation != "" {
			b.WriteString("   ")
			b.WriteString(html.EscapeString(it.Status.Explanation))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// HelpText lists the supported chat commands.
func HelpText() string {
	return strings.Join([]string{
		"<b>PriceLens commands</b>",
		"/prices - market prices for every tracked product",
		"/price &lt;product&gt; - details for one product",
		"/check &lt;product&gt; &lt;price&gt; - is this price fair?",
	}, "\n")
}
