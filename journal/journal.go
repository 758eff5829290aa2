// Package journal persists backtest runs: a SQLite run store, CSV and JSON
// artifact directories, and Org-mode reports.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/pricebt/backtest"
)

// ErrNotFound is returned when a run or batch does not exist.
var ErrNotFound = errors.New("journal: not found")

// RunRecord is one configuration's run within a batch.
type RunRecord struct {
	RunID   string
	BatchID string
	Created time.Time
	Dataset string

	Summary backtest.Summary
	Trades  []backtest.Trade
	Equity  []backtest.EquityPoint
}

// NewRunRecord builds the record for r.
func NewRunRecord(runID, batchID, dataset string, created time.Time, r backtest.Run) RunRecord {
	return RunRecord{
		RunID:   runID,
		BatchID: batchID,
		Created: created,
		Dataset: dataset,
		Summary: r.Summary,
		Trades:  r.Trades,
		Equity:  r.Equity,
	}
}

type Journal interface {
	RecordRun(ctx context.Context, r RunRecord) error
	Close() error
}

// Multi fans every record out to several journals in order.
type Multi []Journal

func (m Multi) RecordRun(ctx context.Context, r RunRecord) error {
	for _, j := range m {
		if err := j.RecordRun(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every journal and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, j := range m {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
