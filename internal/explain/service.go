package explain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PriceLens/internal/cache"
	"PriceLens/internal/classifier"
	"PriceLens/internal/model"
)

// Options tunes the explanation service.
type Options struct {
	Timeout          time.Duration
	MinInterval      time.Duration
	RateLimitBackoff time.Duration
	CacheSize        int
}

// Service explains prices with the AI explainer when it can, and with the
// classifier's templated text when it cannot. It never fails.
type Service struct {
	explainer Explainer
	policy    classifier.Policy
	opts      Options
	limiter   *RateLimiter
	cache     *cache.FIFO[string, string]
	logger    *zap.Logger
}

// NewService builds a service. A nil explainer always yields the fallback.
func NewService(explainer Explainer, policy classifier.Policy, opts Options, logger *zap.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		explainer: explainer,
		policy:    policy,
		opts:      opts,
		limiter:   NewRateLimiter(opts.MinInterval),
		cache:     cache.NewFIFO[string, string](opts.CacheSize),
		logger:    logger,
	}
}

// Limiter exposes the rate limiter, mainly so tests can drive its clock.
func (s *Service) Limiter() *RateLimiter { return s.limiter }

// Explain returns a human explanation of observed against median. areaAverage
// is the mean of the filtered sample.
func (s *Service) Explain(ctx context.Context, observed, median, areaAverage float64) string {
	if s.explainer == nil || !model.ValidPrice(observed) || !model.ValidPrice(median) || !model.ValidPrice(areaAverage) {
		return s.fallback(observed, median)
	}

	key := fmt.Sprintf("%g-%g-%g", observed, median, areaAverage)
	if text, ok := s.cache.Get(key); ok {
		return text
	}

	log := s.logger.With(zap.Float64("observed", observed), zap.Float64("median", median))
	if err := s.limiter.Allow(); err != nil {
		log.Debug("explanation rate limited, using template", zap.Error(err))
		return s.fallback(observed, median)
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	text, err := s.explainer.Explain(cctx, observed, median, areaAverage)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.limiter.Block(s.opts.RateLimitBackoff)
			log.Warn("ai service rate limit hit, blocking calls", zap.Duration("backoff", s.opts.RateLimitBackoff))
		} else {
			log.Warn("ai explanation failed, using template", zap.Error(err))
		}
		return s.fallback(observed, median)
	}
	if text == "" {
		return s.fallback(observed, median)
	}

	s.cache.Set(key, text)
	return text
}

func (s *Service) fallback(observed, median float64) string {
	return s.policy.Classify(observed, median).Explanation
}
