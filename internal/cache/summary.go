package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PriceLens/internal/model"
)

func summaryKey(product, area string, windowDays int) string {
	return fmt.Sprintf("summary:%s:%s:%d", product, area, windowDays)
}

type entry struct {
	summary model.AggregateSummary
	expires time.Time
}

// MemorySummaryCache keeps summaries in a bounded in-process FIFO with a TTL.
type MemorySummaryCache struct {
	fifo *FIFO[string, entry]
	ttl  time.Duration

	Now func() time.Time
}

func NewMemorySummaryCache(size int, ttl time.Duration) *MemorySummaryCache {
	return &MemorySummaryCache{fifo: NewFIFO[string, entry](size), ttl: ttl, Now: time.Now}
}

func (c *MemorySummaryCache) Get(_ context.Context, product, area string, windowDays int) (model.AggregateSummary, bool, error) {
	e, ok := c.fifo.Get(summaryKey(product, area, windowDays))
	if !ok || (c.ttl > 0 && c.Now().After(e.expires)) {
		return model.AggregateSummary{}, false, nil
	}
	return e.summary, true, nil
}

func (c *MemorySummaryCache) Set(_ context.Context, s model.AggregateSummary) error {
	c.fifo.Set(summaryKey(s.Product, s.Area, s.WindowDays), entry{summary: s, expires: c.Now().Add(c.ttl)})
	return nil
}

// RedisSummaryCache shares summaries between processes through Redis.
type RedisSummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSummaryCache(addr, password string, db int, ttl time.Duration) *RedisSummaryCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSummaryCache{rdb: rdb, ttl: ttl}
}

// Ping checks the connection; used at startup.
func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisSummaryCache) Get(ctx context.Context, product, area string, windowDays int) (model.AggregateSummary, bool, error) {
	raw, err := c.rdb.Get(ctx, summaryKey(product, area, windowDays)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.AggregateSummary{}, false, nil
	}
	if err != nil {
		return model.AggregateSummary{}, false, fmt.Errorf("redis get: %w", err)
	}
	var s model.AggregateSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.AggregateSummary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return s, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, s model.AggregateSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, summaryKey(s.Product, s.Area, s.WindowDays), raw, c.ttl).Err()
}

func (c *RedisSummaryCache) Close() error {
	return c.rdb.Close()
}
