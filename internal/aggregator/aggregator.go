package aggregator

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PriceLens/internal/calculator"
	"PriceLens/internal/model"
)

const defaultMaxConcurrency = 4

// Options controls which observations are aggregated and how.
type Options struct {
	WindowDays       int
	Limit            int
	OutlierThreshold float64
	MaxConcurrency   int
}

// Request asks for the summary of one product. Area narrows the sample to
// reports from one locality; empty means every area. Reference is the price
// used as the median when no real data can be aggregated, such as a catalog
// average.
type Request struct {
	Product   string
	Area      string
	Reference float64
}

// Aggregator turns stored observations into per-product summaries.
type Aggregator struct {
	Store   ObservationStore
	Cache   SummaryCache
	Options Options
	logger  *zap.Logger
}

// New creates an Aggregator. A zero OutlierThreshold selects the default.
func New(store ObservationStore, opts Options, logger *zap.Logger) *Aggregator {
	if opts.OutlierThreshold <= 0 {
		opts.OutlierThreshold = calculator.DefaultOutlierThreshold
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{Store: store, Options: opts, logger: logger}
}

// WithCache sets an optional summary cache and returns the aggregator.
func (a *Aggregator) WithCache(c SummaryCache) *Aggregator {
	a.Cache = c
	return a
}

// Aggregate produces the summary for one product. It never fails: storage
// errors and empty results yield a degraded summary built on req.Reference.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) model.AggregateSummary {
	log := a.logger.With(zap.String("product", req.Product), zap.String("area", req.Area))

	if a.Cache != nil {
		cached, ok, err := a.Cache.Get(ctx, req.Product, req.Area, a.Options.WindowDays)
		if err != nil {
			log.Warn("summary cache read failed", zap.Error(err))
		} else if ok {
			return cached
		}
	}

	if err := ctx.Err(); err != nil {
		return a.degraded(req, model.ReasonCollaboratorFailure)
	}

	obs, err := a.Store.FetchObservations(ctx, req.Product, req.Area, a.Options.WindowDays, a.Options.Limit)
	if err != nil {
		log.Warn("fetch observations failed, using reference price",
			zap.Float64("reference", req.Reference), zap.Error(err))
		return a.degraded(req, model.ReasonCollaboratorFailure)
	}

	summary := Summarize(req.Product, obs, a.Options.OutlierThreshold)
	summary.Area = req.Area
	summary.WindowDays = a.Options.WindowDays
	if summary.RawCount == 0 {
		log.Debug("no observations in window", zap.Int("window_days", a.Options.WindowDays))
		return a.degraded(req, model.ReasonDataAbsent)
	}
	if summary.SampleSize == 0 {
		log.Debug("outlier filter discarded every price", zap.Int("raw_count", summary.RawCount))
		d := a.degraded(req, model.ReasonDataAbsent)
		d.RawCount = summary.RawCount
		d.Trend = summary.Trend
		return d
	}

	if a.Cache != nil {
		if err := a.Cache.Set(ctx, summary); err != nil {
			log.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary
}

// AggregateBatch aggregates every requested product concurrently. A failure
// for one product never affects the others; results are keyed by product.
func (a *Aggregator) AggregateBatch(ctx context.Context, reqs []Request) map[string]model.AggregateSummary {
	results := make(map[string]model.AggregateSummary, len(reqs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Options.MaxConcurrency)

	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		if _, dup := seen[req.Product]; dup {
			continue
		}
		seen[req.Product] = struct{}{}

		g.Go(func() error {
			s := a.Aggregate(gctx, req)
			mu.Lock()
			results[req.Product] = s
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	a.logger.Debug("batch aggregated", zap.Int("products", len(results)))
	return results
}

// Summarize runs the aggregation pipeline over observations already in memory.
// Observations with invalid prices are ignored. The trend is computed over the
// unfiltered prices ordered most recent first.
func Summarize(product string, obs []model.PriceObservation, threshold float64) model.AggregateSummary {
	ordered := make([]model.PriceObservation, 0, len(obs))
	for _, o := range obs {
		if model.ValidPrice(o.Price) {
			ordered = append(ordered, o)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].ObservedAt.Equal(ordered[j].ObservedAt) {
			return ordered[i].ObservedAt.After(ordered[j].ObservedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	prices := make([]float64, len(ordered))
	for i, o := range ordered {
		prices[i] = o.Price
	}

	clean := calculator.RemoveOutliers(prices, threshold)
	summary := model.AggregateSummary{
		Product:      product,
		MedianPrice:  calculator.Median(clean),
		AveragePrice: calculator.Mean(clean),
		SampleSize:   len(clean),
		RawCount:     len(prices),
		Confidence:   calculator.Confidence(len(clean)),
	}
	if len(prices) > 0 {
		trend := calculator.Trend(prices)
		summary.Trend = &trend
	}
	return summary
}

func (a *Aggregator) degraded(req Request, reason model.DegradeReason) model.AggregateSummary {
	return model.AggregateSummary{
		Product:     req.Product,
		Area:        req.Area,
		MedianPrice: req.Reference,
		SampleSize:  0,
		Confidence:  model.ConfidenceLow,
		WindowDays:  a.Options.WindowDays,
		Degraded:    true,
		Reason:      reason,
	}
}
