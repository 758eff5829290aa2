package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/pricebt/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "pricebt",
	Short: "Indicator strategy backtester for daily price histories",
	Long: `pricebt replays a daily price history with precomputed indicators through
families of long-only trading rules and ranks the results.

It provides tools for:
  - Backtesting single and dual moving average crossovers
  - Backtesting RSI threshold and Bollinger band breakout rules
  - Ranking every configuration by total profit
  - Storing runs, trades and equity curves in SQLite, CSV and JSON

Complete documentation is available at https://github.com/rustyeddy/pricebt`,
	SilenceUsage: true,
}

var (
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console (overrides config)")
}

// newLogger builds the logger from the flags, falling back to the given
// config values.
func newLogger(level, format string) (*zap.Logger, error) {
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(level, format)
}
