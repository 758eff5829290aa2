package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/config"
	"github.com/rustyeddy/pricebt/journal"
	"github.com/rustyeddy/pricebt/market"
	"github.com/rustyeddy/pricebt/pkg/id"
	"github.com/rustyeddy/pricebt/rank"
	"github.com/rustyeddy/pricebt/signal"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run every configured strategy over a price history",
	Long: `Backtest runs each configured strategy family over an enriched daily price
history, records every run and ranks the configurations by total profit.

Families: dual_ma, single_ma, rsi, bollinger

Example:
  pricebt backtest --data historical_enriched.json --out ./backtests --format json,sqlite
  pricebt backtest --config research.yaml --family rsi --org`,
	RunE: runBacktest,
}

var (
	btDataPath   string
	btConfigPath string
	btOutDir     string
	btDBPath     string
	btFormats    []string
	btFamilies   []string
	btWorkers    int
	btOrg        bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btDataPath, "data", "d", "", "path to enriched price history JSON (overrides config)")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to batch config (YAML or JSON)")
	backtestCmd.Flags().StringVarP(&btOutDir, "out", "o", "", "artifact output directory (overrides config)")
	backtestCmd.Flags().StringVar(&btDBPath, "db", "", "SQLite run store path; enables sqlite output")
	backtestCmd.Flags().StringSliceVar(&btFormats, "format", nil, "output formats: json, csv, sqlite (overrides config)")
	backtestCmd.Flags().StringSliceVarP(&btFamilies, "family", "f", nil, "strategy families to run (default all)")
	backtestCmd.Flags().IntVarP(&btWorkers, "workers", "w", 0, "configurations to run in parallel (overrides config)")
	backtestCmd.Flags().BoolVar(&btOrg, "org", false, "write an Org-mode report for the batch")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data.Path = btDataPath
	}
	if flags.Changed("out") {
		cfg.Output.Dir = btOutDir
	}
	if flags.Changed("format") {
		cfg.Output.Formats = btFormats
	}
	if flags.Changed("db") {
		cfg.Output.DBPath = btDBPath
		if !cfg.Output.HasFormat(config.FormatSQLite) {
			cfg.Output.Formats = append(cfg.Output.Formats, config.FormatSQLite)
		}
	}
	if flags.Changed("workers") {
		cfg.Workers = btWorkers
	}
	if cfg.Data.Path == "" {
		return fmt.Errorf("no price history: set --data or data.path in the config")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	res, err := runBatch(cmd.Context(), batchOptions{
		Config:   cfg,
		Families: btFamilies,
		Org:      btOrg,
		Log:      log,
	})
	if err != nil {
		return err
	}

	printBatch(cfg, res)
	return nil
}

type batchOptions struct {
	Config   *config.Config
	Families []string
	Org      bool
	Log      *zap.Logger
}

type batchResult struct {
	BatchID string
	Points  int
	Start   time.Time
	End     time.Time
	Runs    []backtest.Run
	Ranking rank.Ranking
	OrgPath string
}

// runBatch loads the history, runs every selected configuration, records the
// runs in each configured output and writes the ranking artifacts.
func runBatch(ctx context.Context, o batchOptions) (batchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := o.Config

	series, err := market.LoadEnrichedFile(cfg.Data.Path)
	if err != nil {
		return batchResult{}, err
	}
	configs, err := cfg.Configs(o.Families...)
	if err != nil {
		return batchResult{}, err
	}

	batchID := id.New()
	log = log.With(zap.String("batch_id", batchID))
	log.Info("starting batch",
		zap.String("data", cfg.Data.Path),
		zap.Int("points", len(series)),
		zap.Int("configs", len(configs)),
		zap.Int("workers", cfg.Workers))

	warnMissingIndicators(log, series, configs)

	runs, err := backtest.RunBatch(ctx, series, configs, backtest.RunnerOptions{
		Workers: cfg.Workers,
		Logger:  log,
	})
	if err != nil {
		return batchResult{}, err
	}

	sinks, jsonDir, err := openJournals(cfg.Output)
	if err != nil {
		return batchResult{}, err
	}
	defer sinks.Close()

	created := time.Now().UTC()
	dataset := filepath.Base(cfg.Data.Path)
	records := make([]journal.RunRecord, len(runs))
	for i, r := range runs {
		records[i] = journal.NewRunRecord(id.New(), batchID, dataset, created, r)
		if err := sinks.RecordRun(ctx, records[i]); err != nil {
			return batchResult{}, fmt.Errorf("record %s: %w", r.Config, err)
		}
	}

	families := rank.GroupByFamily(backtest.Summaries(runs))
	ranking := rank.Rank(families)

	if jsonDir != nil {
		if err := jsonDir.WriteSummaries(families); err != nil {
			return batchResult{}, fmt.Errorf("write summaries: %w", err)
		}
		if err := jsonDir.WriteRanking(ranking); err != nil {
			return batchResult{}, fmt.Errorf("write ranking: %w", err)
		}
	}

	res := batchResult{
		BatchID: batchID,
		Points:  len(series),
		Start:   series.Start(),
		End:     series.End(),
		Runs:    runs,
		Ranking: ranking,
	}

	if o.Org {
		res.OrgPath = filepath.Join(cfg.Output.Dir, "backtest_"+batchID+".org")
		if err := writeOrg(res.OrgPath, ranking, records); err != nil {
			return batchResult{}, err
		}
	}

	if ranking.Overall != nil {
		log.Info("batch complete",
			zap.Int("runs", len(runs)),
			zap.String("best", ranking.Overall.Config.String()),
			zap.String("best_total_profit", ranking.Overall.Summary.TotalProfit.StringFixed(2)))
	} else {
		log.Info("batch complete", zap.Int("runs", len(runs)))
	}
	return res, nil
}

// warnMissingIndicators logs configurations whose indicator periods never
// appear in the series. Such runs still execute but cannot trade.
func warnMissingIndicators(log *zap.Logger, series market.Series, configs []signal.Config) {
	available := make(map[market.Kind][]int)
	for _, c := range configs {
		for _, k := range c.Requires() {
			periods, ok := available[k.Kind]
			if !ok {
				periods = series.Periods(k.Kind)
				available[k.Kind] = periods
			}
			if len(series) > 0 && !slices.Contains(periods, k.Period) {
				log.Warn("indicator not present in data",
					zap.String("config", c.String()),
					zap.String("indicator", k.String()))
			}
		}
	}
}

// openJournals builds one journal per output format. The JSON directory is
// also returned on its own since it takes the summary and ranking files.
func openJournals(out config.OutputConfig) (journal.Multi, *journal.JSONDir, error) {
	var (
		sinks   journal.Multi
		jsonDir *journal.JSONDir
	)
	for _, f := range out.Formats {
		switch f {
		case config.FormatJSON:
			j, err := journal.NewJSONDir(out.Dir)
			if err != nil {
				_ = sinks.Close()
				return nil, nil, fmt.Errorf("json output: %w", err)
			}
			jsonDir = j
			sinks = append(sinks, j)
		case config.FormatCSV:
			j, err := journal.NewCSV(out.Dir)
			if err != nil {
				_ = sinks.Close()
				return nil, nil, fmt.Errorf("csv output: %w", err)
			}
			sinks = append(sinks, j)
		case config.FormatSQLite:
			if dir := filepath.Dir(out.DBPath); dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					_ = sinks.Close()
					return nil, nil, err
				}
			}
			j, err := journal.NewSQLite(out.DBPath)
			if err != nil {
				_ = sinks.Close()
				return nil, nil, fmt.Errorf("open db: %w", err)
			}
			sinks = append(sinks, j)
		}
	}
	return sinks, jsonDir, nil
}

func writeOrg(path string, ranking rank.Ranking, records []journal.RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(journal.FormatRankingOrg(ranking))
	for _, r := range records {
		block, err := journal.FormatSummaryOrg(r)
		if err != nil {
			return err
		}
		b.WriteString("\n")
		// demote run headings under the ranking
		b.WriteString(strings.ReplaceAll("\n"+block, "\n*", "\n**")[1:])
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func printBatch(cfg *config.Config, res batchResult) {
	fmt.Printf("✓ Batch %s complete\n", res.BatchID)
	fmt.Printf("  Data: %s (%d points", cfg.Data.Path, res.Points)
	if res.Points > 0 {
		fmt.Printf(", %s to %s", market.FormatDate(res.Start), market.FormatDate(res.End))
	}
	fmt.Printf(")\n")
	fmt.Printf("  Runs: %d\n", len(res.Runs))
	fmt.Printf("  Output: %s\n\n", strings.Join(cfg.Output.Formats, ", "))

	for _, f := range res.Ranking.Families {
		fmt.Printf("  %-10s best %-18s total profit %10s  (%d configs, %d trades)\n",
			f.Strategy, f.Best.Config, f.Best.TotalProfit.StringFixed(2), f.TotalConfigs, f.Best.NumTrades)
	}
	if o := res.Ranking.Overall; o != nil {
		fmt.Printf("\nOverall best: %s %s (total profit %s)\n", o.Strategy, o.Config, o.Summary.TotalProfit.StringFixed(2))
	}
	if res.OrgPath != "" {
		fmt.Printf("Org report: %s\n", res.OrgPath)
	}
}
