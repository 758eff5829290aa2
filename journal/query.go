package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/market"
	"github.com/rustyeddy/pricebt/pkg/id"
)

// Batch describes one invocation that produced a set of runs.
type Batch struct {
	BatchID string
	Created time.Time
	Dataset string
	Runs    int
}

const runColumns = `run_id, batch_id, created, dataset, config, num_trades, wins, losses,
	win_rate, gross_profit, gross_loss, profit_factor, avg_profit, max_drawdown, total_profit`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var cfg, pf string
	st := &rec.Summary.Stats

	err := row.Scan(
		&rec.RunID, &rec.BatchID, &rec.Created, &rec.Dataset, &cfg,
		&st.NumTrades, &st.Wins, &st.Losses, &st.WinRate,
		&st.GrossProfit, &st.GrossLoss, &pf,
		&st.AvgProfitPerTrade, &st.MaxDrawdown, &st.TotalProfit,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal([]byte(cfg), &rec.Summary.Config); err != nil {
		return RunRecord{}, fmt.Errorf("journal: run %s: decode config: %w", rec.RunID, err)
	}
	if st.ProfitFactor, err = strconv.ParseFloat(pf, 64); err != nil {
		return RunRecord{}, fmt.Errorf("journal: run %s: profit factor: %w", rec.RunID, err)
	}
	return rec, nil
}

// GetRun loads a run with its trades and equity curve.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}

	if rec.Trades, err = j.ListTrades(ctx, runID); err != nil {
		return RunRecord{}, err
	}
	if rec.Equity, err = j.ListEquity(ctx, runID); err != nil {
		return RunRecord{}, err
	}
	if n := len(rec.Trades); n > 0 {
		first, last := rec.Trades[0], rec.Trades[n-1]
		rec.Summary.FirstTrade = &first
		rec.Summary.LastTrade = &last
	}
	return rec, nil
}

// ListRuns returns the runs of a batch in the order they were recorded,
// without trades or equity.
func (j *SQLite) ListRuns(ctx context.Context, batchID string) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE batch_id = ?
		ORDER BY rowid ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSummaries returns the summaries of a batch in recorded order.
func (j *SQLite) ListSummaries(ctx context.Context, batchID string) ([]backtest.Summary, error) {
	runs, err := j.ListRuns(ctx, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]backtest.Summary, len(runs))
	for i, r := range runs {
		out[i] = r.Summary
		if r.Summary.NumTrades == 0 {
			continue
		}
		ends, err := j.queryTrades(ctx, `
			WHERE run_id = ? AND (seq = 0 OR seq = (SELECT MAX(seq) FROM trades WHERE run_id = ?))`,
			r.RunID, r.RunID)
		if err != nil {
			return nil, err
		}
		if n := len(ends); n > 0 {
			first, last := ends[0], ends[n-1]
			out[i].FirstTrade = &first
			out[i].LastTrade = &last
		}
	}
	return out, nil
}

// ListTrades returns the trades of a run in ledger order.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	return j.queryTrades(ctx, `WHERE run_id = ?`, runID)
}

func (j *SQLite) queryTrades(ctx context.Context, where string, args ...any) ([]backtest.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT entry_date, entry_price, exit_date, exit_price, profit, cumulative_profit, reason
		FROM trades `+where+`
		ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.Trade{}
	for rows.Next() {
		var (
			t           backtest.Trade
			entry, exit string
		)
		if err := rows.Scan(&entry, &t.EntryPrice, &exit, &t.ExitPrice, &t.Profit, &t.CumulativeProfit, &t.Reason); err != nil {
			return nil, err
		}
		if t.EntryDate, err = market.ParseDate(entry); err != nil {
			return nil, err
		}
		if t.ExitDate, err = market.ParseDate(exit); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the equity curve of a run.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]backtest.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.EquityPoint{}
	for rows.Next() {
		var (
			p    backtest.EquityPoint
			date string
		)
		if err := rows.Scan(&date, &p.Equity); err != nil {
			return nil, err
		}
		if p.Date, err = market.ParseDate(date); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBatches returns all batches, newest first.
func (j *SQLite) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT batch_id, dataset, COUNT(*)
		FROM runs
		GROUP BY batch_id, dataset
		ORDER BY batch_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.BatchID, &b.Dataset, &b.Runs); err != nil {
			return nil, err
		}
		if created, err := id.Time(b.BatchID); err == nil {
			b.Created = created
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestBatch returns the ID of the most recent batch.
func (j *SQLite) LatestBatch(ctx context.Context) (string, error) {
	var batchID string
	err := j.db.QueryRowContext(ctx, `SELECT batch_id FROM runs ORDER BY batch_id DESC LIMIT 1`).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no batches recorded: %w", ErrNotFound)
	}
	return batchID, err
}
