package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"PriceLens/internal/config"
)

var (
	verbose    bool
	configPath string
	timeout    time.Duration
	jsonOutput bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pricelens",
	Short: "PriceLens - community price reports, aggregated",
	Long: `PriceLens aggregates community-submitted prices into per-product market
summaries (median, confidence, trend) and tells you whether a price you paid
is above, below or at the market rate.

Run "pricelens run" to start the Telegram bot and scheduled digests.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if configPath == "" {
			configPath = "configs/config.yaml"
			if v := os.Getenv("CONFIG_PATH"); v != "" {
				configPath = v
			}
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CONFIG_PATH or configs/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Timeout for one-shot commands")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	submitCmd.Flags().String("product", "", "Product id (required)")
	submitCmd.Flags().Float64("price", 0, "Price paid (required)")
	submitCmd.Flags().String("shop", "", "Shop name")
	submitCmd.Flags().String("reporter", "", "Reporter id (required)")
	submitCmd.Flags().String("area", "", "Area or locality")
	submitCmd.Flags().String("category", "", "Product category")
	_ = submitCmd.MarkFlagRequired("product")
	_ = submitCmd.MarkFlagRequired("price")
	_ = submitCmd.MarkFlagRequired("reporter")

	summaryCmd.Flags().String("area", "", "Only aggregate reports from this area")
	checkCmd.Flags().String("area", "", "Compare against reports from this area only")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(insightsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
