package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"PriceLens/internal/aggregator"
	"PriceLens/internal/catalog"
	"PriceLens/internal/classifier"
	"PriceLens/internal/insight"
	"PriceLens/internal/model"
	"PriceLens/internal/notifier"
)

// Sender delivers a message to the configured chat.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// SummaryRecorder keeps the aggregation history.
type SummaryRecorder interface {
	RecordSummary(ctx context.Context, s model.AggregateSummary) error
}

// Explainer explains a price against the market.
type Explainer interface {
	Explain(ctx context.Context, observed, median, areaAverage float64) string
}

// Scheduler manages all cron tasks and answers chat commands.
type Scheduler struct {
	Cron       *cron.Cron
	Aggregator *aggregator.Aggregator
	Catalog    *catalog.Manager
	Recorder   SummaryRecorder
	Notifier   Sender
	Explainer  Explainer
	Insights   *insight.Service
	Policy     classifier.Policy
	Format     notifier.Formatter
	Ctx        context.Context
	Now        func() time.Time
	logger     *zap.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, agg *aggregator.Aggregator, cat *catalog.Manager, rec SummaryRecorder, sender Sender, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Aggregator: agg,
		Catalog:    cat,
		Recorder:   rec,
		Notifier:   sender,
		Policy:     classifier.DefaultPolicy,
		Format:     notifier.Formatter{Currency: "₹"},
		Ctx:        ctx,
		Now:        time.Now,
		logger:     logger,
	}
}

// RegisterAll registers the digest and reference refresh tasks. An empty
// expression skips that task.
func (s *Scheduler) RegisterAll(digestCron, refreshCron string) error {
	if digestCron != "" {
		if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
			return fmt.Errorf("register digest task: %w", err)
		}
	}
	if refreshCron != "" {
		if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunDigestNow executes the digest task immediately (for RUN_ON_START).
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) digestTask() {
	s.logger.Info("running digest task")
	summaries := s.refresh(s.Ctx)
	s.trySend(s.Format.FormatDigest(s.Catalog.Products(), summaries, s.Now()))
}

func (s *Scheduler) refreshTask() {
	s.logger.Info("running reference refresh")
	s.refresh(s.Ctx)
}

// refresh aggregates the whole catalog, records every summary and moves the
// catalog references to the new medians.
func (s *Scheduler) refresh(ctx context.Context) map[string]model.AggregateSummary {
	summaries := s.Aggregator.AggregateBatch(ctx, s.Catalog.Requests())

	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	degraded := 0
	for _, id := range ids {
		sum := summaries[id]
		if sum.Degraded {
			degraded++
		}
		if s.Recorder == nil {
			continue
		}
		if err := s.Recorder.RecordSummary(ctx, sum); err != nil {
			s.logger.Error("record summary failed", zap.String("product", id), zap.Error(err))
		}
	}
	changed := s.Catalog.Update(summaries)
	s.logger.Info("catalog refreshed",
		zap.Int("products", len(summaries)),
		zap.Int("degraded", degraded),
		zap.Int("references_changed", changed))
	return summaries
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	// Group chats append the bot name: /price@PriceLensBot
	cmd := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	args := fields[1:]

	switch cmd {
	case "/prices":
		summaries := s.Aggregator.AggregateBatch(ctx, s.Catalog.Requests())
		return s.Format.FormatDigest(s.Catalog.Products(), summaries, s.Now())
	case "/price":
		if len(args) != 1 {
			return "Usage: /price &lt;product&gt;"
		}
		p := s.product(args[0])
		return s.Format.FormatSummary(p, s.Aggregator.Aggregate(ctx, s.Catalog.Request(p.ID)))
	case "/check":
		if len(args) != 2 {
			return "Usage: /check &lt;product&gt; &lt;price&gt;"
		}
		price, err := strconv.ParseFloat(args[1], 64)
		if err != nil || !model.ValidPrice(price) {
			return "Price must be a positive number."
		}
		p := s.product(args[0])
		st, sum := s.Check(ctx, p.ID, price)
		return s.Format.FormatCheck(p, st, sum)
	case "/insights":
		if s.Insights == nil || len(args) != 1 {
			return notifier.HelpText()
		}
		items, err := s.Insights.ForReporter(ctx, args[0])
		if err != nil {
			s.logger.Warn("insights failed", zap.String("reporter", args[0]), zap.Error(err))
			return "Insights are temporarily unavailable."
		}
		var stats *insight.ReporterStats
		if st, err := s.Insights.Stats(ctx, args[0]); err != nil {
			s.logger.Warn("reporter stats failed", zap.String("reporter", args[0]), zap.Error(err))
		} else {
			stats = &st
		}
		return s.Format.FormatInsights(args[0], stats, items)
	default:
		return notifier.HelpText()
	}
}

// Check classifies price against the current market for product. Products
// without real data classify as a new report.
func (s *Scheduler) Check(ctx context.Context, product string, price float64) (model.PriceStatus, model.AggregateSummary) {
	sum := s.Aggregator.Aggregate(ctx, s.Catalog.Request(product))
	var median float64
	if sum.HasData() {
		median = sum.MedianPrice
	}
	st := s.Policy.Classify(price, median)
	if s.Explainer != nil && sum.HasData() {
		st.Explanation = s.Explainer.Explain(ctx, price, sum.MedianPrice, sum.AveragePrice)
	}
	return st, sum
}

func (s *Scheduler) product(id string) model.Product {
	id = strings.ToLower(id)
	if p, ok := s.Catalog.Lookup(id); ok {
		return p
	}
	return model.Product{ID: id, Name: id}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error("send notification failed", zap.Error(err))
	}
}
