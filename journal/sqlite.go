package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/pricebt/market"
)

// SQLite stores runs, their trades and their equity curves in one database.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun writes the run row, its trades and its equity curve in one
// transaction.
func (j *SQLite) RecordRun(ctx context.Context, r RunRecord) (err error) {
	cfg, err := json.Marshal(r.Summary.Config)
	if err != nil {
		return fmt.Errorf("journal: encode config: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	s := r.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, batch_id, created, dataset, family, config, num_trades, wins, losses,
		 win_rate, gross_profit, gross_loss, profit_factor, avg_profit, max_drawdown, total_profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.BatchID, r.Created.UTC(), r.Dataset, s.Config.Family, string(cfg),
		s.NumTrades, s.Wins, s.Losses, s.WinRate, s.GrossProfit, s.GrossLoss,
		strconv.FormatFloat(s.ProfitFactor, 'g', -1, 64),
		s.AvgProfitPerTrade, s.MaxDrawdown, s.TotalProfit,
	)
	if err != nil {
		return fmt.Errorf("journal: insert run %s: %w", r.RunID, err)
	}

	for i, t := range r.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trades
			(run_id, seq, entry_date, entry_price, exit_date, exit_price, profit, cumulative_profit, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, market.FormatDate(t.EntryDate), t.EntryPrice,
			market.FormatDate(t.ExitDate), t.ExitPrice, t.Profit, t.CumulativeProfit, t.Reason,
		)
		if err != nil {
			return fmt.Errorf("journal: insert trade %d of %s: %w", i, r.RunID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO equity (run_id, seq, date, equity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range r.Equity {
		if _, err = stmt.ExecContext(ctx, r.RunID, i, market.FormatDate(e.Date), e.Equity); err != nil {
			return fmt.Errorf("journal: insert equity %d of %s: %w", i, r.RunID, err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
