package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PriceLens/internal/model"
)

// RetryingStore retries failed reads with exponential backoff. Writes are
// passed through unchanged. A cancelled context stops retrying immediately.
type RetryingStore struct {
	Store
	MaxAttempts int
	BaseDelay   time.Duration
	logger      *zap.Logger
}

func NewRetryingStore(s Store, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *RetryingStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingStore{Store: s, MaxAttempts: maxAttempts, BaseDelay: baseDelay, logger: logger}
}

func (r *RetryingStore) FetchObservations(ctx context.Context, product, area string, windowDays, limit int) ([]model.PriceObservation, error) {
	var out []model.PriceObservation
	err := r.do(ctx, "fetch "+product, func() error {
		var err error
		out, err = r.Store.FetchObservations(ctx, product, area, windowDays, limit)
		return err
	})
	return out, err
}

func (r *RetryingStore) FetchByReporter(ctx context.Context, reporterID string, limit int) ([]model.PriceObservation, error) {
	var out []model.PriceObservation
	err := r.do(ctx, "fetch reporter "+reporterID, func() error {
		var err error
		out, err = r.Store.FetchByReporter(ctx, reporterID, limit)
		return err
	})
	return out, err
}

func (r *RetryingStore) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == r.MaxAttempts {
			break
		}

		r.logger.Warn("store read failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, r.MaxAttempts, lastErr)
}
