package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustyeddy/pricebt/market"
)

var (
	tradeHeader  = []string{"entry_date", "entry_price", "exit_date", "exit_price", "profit", "cumulative_profit", "reason"}
	equityHeader = []string{"date", "equity"}
)

// CSV writes trades_<slug>.csv and equity_curve_<slug>.csv for each run into
// a directory. Values keep full decimal precision.
type CSV struct {
	dir string
}

func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &CSV{dir: dir}, nil
}

func (j *CSV) RecordRun(_ context.Context, r RunRecord) error {
	slug := r.Summary.Config.Slug()

	trades := make([][]string, 0, len(r.Trades)+1)
	trades = append(trades, tradeHeader)
	for _, t := range r.Trades {
		trades = append(trades, []string{
			market.FormatDate(t.EntryDate),
			t.EntryPrice.String(),
			market.FormatDate(t.ExitDate),
			t.ExitPrice.String(),
			t.Profit.String(),
			t.CumulativeProfit.String(),
			t.Reason,
		})
	}
	if err := writeCSV(filepath.Join(j.dir, "trades_"+slug+".csv"), trades); err != nil {
		return err
	}

	equity := make([][]string, 0, len(r.Equity)+1)
	equity = append(equity, equityHeader)
	for _, e := range r.Equity {
		equity = append(equity, []string{market.FormatDate(e.Date), e.Equity.String()})
	}
	return writeCSV(filepath.Join(j.dir, "equity_curve_"+slug+".csv"), equity)
}

func (j *CSV) Close() error { return nil }

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("journal: write %s: %w", path, err)
	}
	return f.Close()
}
