package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PriceLens/internal/aggregator"
	"PriceLens/internal/cache"
	"PriceLens/internal/catalog"
	"PriceLens/internal/classifier"
	"PriceLens/internal/config"
	"PriceLens/internal/explain"
	"PriceLens/internal/insight"
	"PriceLens/internal/notifier"
	"PriceLens/internal/store"
)

const memoryCacheSize = 256

// app holds the components shared by every command.
type app struct {
	store    store.Store
	agg      *aggregator.Aggregator
	catalog  *catalog.Manager
	explain  *explain.Service
	insights *insight.Service
	policy   classifier.Policy
	format   notifier.Formatter

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{format: notifier.Formatter{Currency: cfg.Display.CurrencySymbol}}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	a.policy = policy

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)
	a.store = store.NewRetryingStore(st, cfg.Storage.MaxRetries, 500*time.Millisecond, logger)

	a.agg = aggregator.New(a.store, aggregator.Options{
		WindowDays:       cfg.Aggregation.WindowDays,
		Limit:            cfg.Aggregation.Limit,
		OutlierThreshold: cfg.Aggregation.OutlierThreshold,
		MaxConcurrency:   cfg.Aggregation.MaxConcurrency,
	}, logger).WithCache(a.summaryCache(ctx, cfg, logger))

	a.catalog, err = catalog.NewManager(cfg.Catalog.StateFile, cfg.Catalog.Products, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var explainer explain.Explainer
	if cfg.Gemini.APIKey != "" {
		g, err := explain.NewGeminiExplainer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Display.CurrencySymbol)
		if err != nil {
			logger.Warn("gemini explainer unavailable, using templated explanations", zap.Error(err))
		} else {
			explainer = g
		}
	}
	a.explain = explain.NewService(explainer, policy, explain.Options{
		Timeout:          cfg.Gemini.Timeout,
		MinInterval:      cfg.Gemini.MinInterval,
		RateLimitBackoff: cfg.Gemini.RateLimitBackoff,
		CacheSize:        cfg.Gemini.CacheSize,
	}, logger)

	a.insights = insight.NewService(a.store, a.agg, policy, a.explain, logger)
	a.insights.Reference = a.catalog.Reference
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverSQLite:
		return store.NewSQLiteStore(cfg.Storage.SQLitePath, logger)
	case config.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN, logger)
	case config.DriverHTTP:
		return store.NewHTTPStore(cfg.Storage.HTTPBaseURL, cfg.Storage.HTTPAPIKey, cfg.Proxy, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// summaryCache prefers Redis and falls back to an in-process cache.
func (a *app) summaryCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) aggregator.SummaryCache {
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisSummaryCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rc.Ping(pctx); err != nil {
			logger.Warn("redis unavailable, using in-memory summary cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rc.Close()
		} else {
			a.closers = append(a.closers, rc.Close)
			return rc
		}
	}
	return cache.NewMemorySummaryCache(memoryCacheSize, cfg.Redis.TTL)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
