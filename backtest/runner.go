package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pricebt/market"
	"github.com/rustyeddy/pricebt/signal"
)

// RunnerOptions controls how a batch of configurations is evaluated.
type RunnerOptions struct {
	// Workers bounds how many configurations run at once. Zero or one runs
	// them one after another.
	Workers int
	Logger  *zap.Logger
}

// Run pairs the artifacts of one configuration with its summary.
type Run struct {
	Result
	Summary Summary
}

// RunBatch evaluates every configuration against series. Each configuration
// gets its own rule and position, so runs share nothing but the read-only
// series. Results are returned in configuration order.
func RunBatch(ctx context.Context, series market.Series, configs []signal.Config, opts RunnerOptions) ([]Run, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	rules := make([]signal.Rule, len(configs))
	for i, c := range configs {
		r, err := signal.NewRule(c)
		if err != nil {
			return nil, fmt.Errorf("backtest: config %d: %w", i, err)
		}
		rules[i] = r
	}

	engine := NewEngine(log)
	runs := make([]Run, len(configs))

	g, ctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, rule := range rules {
		i, rule := i, rule
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := engine.Run(series, rule)
			if err != nil {
				return err
			}
			runs[i] = Run{Result: res, Summary: res.Summary()}
			log.Info("backtest run complete",
				zap.String("config", rule.Name()),
				zap.Int("points", len(series)),
				zap.Int("trades", len(res.Trades)),
				zap.String("total_profit", res.TotalProfit.String()),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Summaries extracts the summaries of runs in order.
func Summaries(runs []Run) []Summary {
	out := make([]Summary, len(runs))
	for i, r := range runs {
		out[i] = r.Summary
	}
	return out
}
