package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pricebt/journal"
	"github.com/rustyeddy/pricebt/rank"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a recorded batch by total profit",
	Long: `Rank recomputes the per-family and overall best configurations of a batch
stored in the SQLite run store.

Examples:
  pricebt rank --db ./backtests/runs.db
  pricebt rank --batch 01J0Z8Q5T4N1G0D7V3M2K9XW6B --out ./ranked --org`,
	Args: cobra.NoArgs,
	RunE: runRank,
}

var (
	rankDBPath  string
	rankBatchID string
	rankOutDir  string
	rankOrg     bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankDBPath, "db", "d", "./backtests/runs.db", "path to SQLite run store")
	rankCmd.Flags().StringVarP(&rankBatchID, "batch", "b", "", "batch ID (default latest)")
	rankCmd.Flags().StringVarP(&rankOutDir, "out", "o", "", "also write summary and ranking JSON files here")
	rankCmd.Flags().BoolVar(&rankOrg, "org", false, "print the ranking as an Org-mode table")
}

func runRank(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(rankDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	batchID, ranking, families, err := rankBatch(cmd.Context(), j, rankBatchID)
	if err != nil {
		return err
	}

	if rankOutDir != "" {
		out, err := journal.NewJSONDir(rankOutDir)
		if err != nil {
			return err
		}
		if err := out.WriteSummaries(families); err != nil {
			return fmt.Errorf("write summaries: %w", err)
		}
		if err := out.WriteRanking(ranking); err != nil {
			return fmt.Errorf("write ranking: %w", err)
		}
		fmt.Printf("Summaries written to %s\n", out.Dir())
	}

	if rankOrg {
		fmt.Println(journal.FormatRankingOrg(ranking))
		return nil
	}

	fmt.Printf("Batch %s\n\n", batchID)
	if len(ranking.Families) == 0 {
		fmt.Println("  no runs recorded")
		return nil
	}
	for _, f := range ranking.Families {
		fmt.Printf("  %-10s best %-18s total profit %10s  (%d configs)\n",
			f.Strategy, f.Best.Config, f.Best.TotalProfit.StringFixed(2), f.TotalConfigs)
	}
	if o := ranking.Overall; o != nil {
		fmt.Printf("\nOverall best: %s %s (total profit %s)\n", o.Strategy, o.Config, o.Summary.TotalProfit.StringFixed(2))
	}
	return nil
}

// rankBatch ranks batchID, or the latest batch when batchID is empty.
func rankBatch(ctx context.Context, j *journal.SQLite, batchID string) (string, rank.Ranking, []rank.Family, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if batchID == "" {
		latest, err := j.LatestBatch(ctx)
		if err != nil {
			return "", rank.Ranking{}, nil, err
		}
		batchID = latest
	}

	sums, err := j.ListSummaries(ctx, batchID)
	if err != nil {
		return "", rank.Ranking{}, nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	if len(sums) == 0 {
		return "", rank.Ranking{}, nil, fmt.Errorf("batch %q: %w", batchID, journal.ErrNotFound)
	}

	families := rank.GroupByFamily(sums)
	return batchID, rank.Rank(families), families, nil
}
