package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PriceLens/internal/aggregator"
	"PriceLens/internal/model"
	"PriceLens/internal/notifier"
	"PriceLens/internal/scheduler"
	"PriceLens/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Telegram bot and scheduled price digests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateBot(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.APIBase, logger)

		sched := scheduler.NewScheduler(ctx, a.agg, a.catalog, a.store, tn, logger)
		sched.Explainer = a.explain
		sched.Insights = a.insights
		sched.Policy = a.policy
		sched.Format = a.format
		if err := sched.RegisterAll(cfg.Schedule.DigestCron, cfg.Schedule.RefreshCron); err != nil {
			return fmt.Errorf("register cron tasks: %w", err)
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")

		if os.Getenv("RUN_ON_START") == "true" {
			logger.Info("RUN_ON_START enabled, sending digest now")
			go sched.RunDigestNow()
		}

		logger.Info("PriceLens is running, press Ctrl+C to stop",
			zap.String("storage", cfg.Storage.Driver),
			zap.String("policy", a.policy.Name))
		<-ctx.Done()
		logger.Info("shutdown signal received, stopping")
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [product...]",
	Short: "Print market summaries (whole catalog by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		products := a.catalog.Products()
		if len(args) > 0 {
			products = products[:0]
			for _, id := range args {
				products = append(products, a.product(id))
			}
		}
		area, _ := cmd.Flags().GetString("area")
		reqs := make([]aggregator.Request, 0, len(products))
		for _, p := range products {
			req := a.catalog.Request(p.ID)
			req.Area = strings.TrimSpace(area)
			reqs = append(reqs, req)
		}
		summaries := a.agg.AggregateBatch(ctx, reqs)

		ordered := make([]model.AggregateSummary, 0, len(products))
		for _, p := range products {
			if s, ok := summaries[p.ID]; ok {
				ordered = append(ordered, s)
			}
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ordered)
		}
		for i, s := range ordered {
			printSummary(cmd.OutOrStdout(), a.format.Currency, products[i], s)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <product> <price>",
	Short: "Check a price against the market",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := strconv.ParseFloat(args[1], 64)
		if err != nil || !model.ValidPrice(price) {
			return model.ErrInvalidPrice
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		p := a.product(args[0])
		req := a.catalog.Request(p.ID)
		area, _ := cmd.Flags().GetString("area")
		req.Area = strings.TrimSpace(area)
		sum := a.agg.Aggregate(ctx, req)
		var median float64
		if sum.HasData() {
			median = sum.MedianPrice
		}
		st := a.policy.Classify(price, median)
		if sum.HasData() {
			st.Explanation = a.explain.Explain(ctx, price, sum.MedianPrice, sum.AveragePrice)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"status": st, "summary": sum})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %s\n", p.Name, st.Label)
		fmt.Fprintf(w, "  your price:    %s%.2f\n", a.format.Currency, st.Price)
		if median > 0 {
			fmt.Fprintf(w, "  market median: %s%.2f (%+.1f%%, %s confidence)\n", a.format.Currency, median, st.Deviation*100, sum.Confidence)
		}
		fmt.Fprintf(w, "  %s\n", st.Explanation)
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a price report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		obs := &model.PriceObservation{}
		obs.Product, _ = flags.GetString("product")
		obs.Price, _ = flags.GetFloat64("price")
		obs.Shop, _ = flags.GetString("shop")
		obs.ReporterID, _ = flags.GetString("reporter")
		obs.Area, _ = flags.GetString("area")
		obs.Category, _ = flags.GetString("category")
		obs.Product = strings.ToLower(strings.TrimSpace(obs.Product))

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Add(ctx, obs); err != nil {
			if errors.Is(err, store.ErrDuplicateReport) {
				return fmt.Errorf("%s at %q: %w", obs.Product, obs.Shop, err)
			}
			return fmt.Errorf("submit: %w", err)
		}
		logger.Info("price report stored",
			zap.String("id", obs.ID),
			zap.String("product", obs.Product),
			zap.Float64("price", obs.Price))

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), obs)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored report %s\n", obs.ID)
		return nil
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights <reporter>",
	Short: "Show a reporter's reports judged against the market",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.insights.ForReporter(ctx, args[0])
		if err != nil {
			return err
		}
		stats, err := a.insights.Stats(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"stats": stats, "insights": items})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %s tier, %d reports, trust %.1f/5\n",
			stats.ReporterID, stats.Tier, stats.TotalReports, stats.TrustScore)
		if len(items) == 0 {
			fmt.Fprintln(w, "No price reports yet.")
			return nil
		}
		for _, it := range items {
			o := it.Observation
			fmt.Fprintf(w, "%s  %-10s %-20s %s%.2f  %s\n",
				o.ObservedAt.Format("2006-01-02"), o.Product, o.Shop, a.format.Currency, o.Price, it.Status.Label)
			if it.Status.Explanation != "" {
				fmt.Fprintf(w, "    %s\n", it.Status.Explanation)
			}
		}
		return nil
	},
}

func (a *app) product(id string) model.Product {
	id = strings.ToLower(strings.TrimSpace(id))
	if p, ok := a.catalog.Lookup(id); ok {
		return p
	}
	return model.Product{ID: id, Name: id}
}

func printSummary(w io.Writer, currency string, p model.Product, s model.AggregateSummary) {
	if !s.HasData() {
		fmt.Fprintf(w, "%-16s no recent reports", p.Name)
		if s.MedianPrice > 0 {
			fmt.Fprintf(w, " (reference %s%.2f)", currency, s.MedianPrice)
		}
		if s.Reason == model.ReasonCollaboratorFailure {
			fmt.Fprint(w, " [storage unavailable]")
		}
		fmt.Fprintln(w)
		return
	}
	trend := "stable"
	if s.Trend != nil && s.Trend.Direction != model.TrendStable {
		trend = fmt.Sprintf("%s %.1f%%", s.Trend.Direction, s.Trend.Percent)
	}
	fmt.Fprintf(w, "%-16s %s%.2f  %-6s confidence  trend %-12s %d/%d reports\n",
		p.Name, currency, s.MedianPrice, s.Confidence, trend, s.SampleSize, s.RawCount)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
