package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pricebt/journal"
	"github.com/rustyeddy/pricebt/market"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query recorded backtest runs",
	Long: `Query and display runs from the SQLite run store.

Subcommands:
  list  - List batches, or the runs of one batch
  show  - Show one run as an Org-mode block

Examples:
  pricebt runs list
  pricebt runs list --batch 01J0Z8Q5T4N1G0D7V3M2K9XW6B
  pricebt runs show 01J0Z8Q5T9AFDW3CPB1XH8M4RZ`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batches or the runs of a batch",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the details of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var (
	dbPath        string
	runsBatchID   string
	runsShowTrade bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./backtests/runs.db", "path to SQLite run store")
	runsListCmd.Flags().StringVarP(&runsBatchID, "batch", "b", "", "list the runs of this batch")
	runsShowCmd.Flags().BoolVar(&runsShowTrade, "trades", true, "include the trade table")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	if runsBatchID == "" {
		batches, err := j.ListBatches(cmd.Context())
		if err != nil {
			return fmt.Errorf("query batches: %w", err)
		}
		if len(batches) == 0 {
			fmt.Println("no batches recorded")
			return nil
		}
		for _, b := range batches {
			fmt.Printf("%s  %s  %-24s %d runs\n", b.BatchID, b.Created.Format("2006-01-02 15:04"), b.Dataset, b.Runs)
		}
		return nil
	}

	runs, err := j.ListRuns(cmd.Context(), runsBatchID)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("batch %q: %w", runsBatchID, journal.ErrNotFound)
	}
	for _, r := range runs {
		s := r.Summary
		fmt.Printf("%s  %-18s trades %4d  win rate %6.2f%%  total profit %10s\n",
			r.RunID, s.Config, s.NumTrades, s.WinRate*100, s.TotalProfit.StringFixed(2))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if !runsShowTrade {
		rec.Trades = nil
	}

	out, err := journal.FormatSummaryOrg(rec)
	if err != nil {
		return err
	}
	fmt.Print(out)
	if len(rec.Equity) > 0 {
		last := rec.Equity[len(rec.Equity)-1]
		fmt.Printf("\nFinal equity %s on %s\n", last.Equity.StringFixed(2), market.FormatDate(last.Date))
	}
	return nil
}
