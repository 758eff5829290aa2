package journal

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/signal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) time.Time { return time.Date(2024, 2, n, 0, 0, 0, 0, time.UTC) }

// sampleRecord is a dual MA run with one winning and one losing trade.
func sampleRecord(runID, batchID string) RunRecord {
	trades := []backtest.Trade{
		{EntryDate: day(2), EntryPrice: dec("100.125"), ExitDate: day(4), ExitPrice: dec("110.5"),
			Profit: dec("10.375"), CumulativeProfit: dec("10.375"), Reason: backtest.ReasonSignal},
		{EntryDate: day(5), EntryPrice: dec("112"), ExitDate: day(6), ExitPrice: dec("108"),
			Profit: dec("-4"), CumulativeProfit: dec("6.375"), Reason: backtest.ReasonEndOfSeries},
	}
	equity := []backtest.EquityPoint{
		{Date: day(1), Equity: dec("0")},
		{Date: day(2), Equity: dec("0")},
		{Date: day(3), Equity: dec("4.875")},
		{Date: day(4), Equity: dec("10.375")},
		{Date: day(5), Equity: dec("10.375")},
		{Date: day(6), Equity: dec("6.375")},
	}
	res := backtest.Result{
		Config:      signal.Config{Family: signal.FamilyDualMA, Fast: 5, Slow: 20},
		Trades:      trades,
		Equity:      equity,
		TotalProfit: dec("6.375"),
	}
	run := backtest.Run{Result: res, Summary: res.Summary()}
	return NewRunRecord(runID, batchID, "prices.json", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), run)
}

func TestSampleRecordSummary(t *testing.T) {
	t.Parallel()

	s := sampleRecord("R1", "B1").Summary
	assert.Equal(t, 2, s.NumTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.False(t, math.IsInf(s.ProfitFactor, 0))
}

type recorder struct {
	ids    []string
	err    error
	closed bool
}

func (r *recorder) RecordRun(_ context.Context, rec RunRecord) error {
	if r.err != nil {
		return r.err
	}
	r.ids = append(r.ids, rec.RunID)
	return nil
}

func (r *recorder) Close() error {
	r.closed = true
	return r.err
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}

	assert.NoError(t, m.RecordRun(context.Background(), sampleRecord("R1", "B1")))
	assert.NoError(t, m.RecordRun(context.Background(), sampleRecord("R2", "B1")))
	assert.Equal(t, []string{"R1", "R2"}, a.ids)
	assert.Equal(t, []string{"R1", "R2"}, b.ids)

	assert.NoError(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiStopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a, b := &recorder{err: boom}, &recorder{}
	m := Multi{a, b}

	err := m.RecordRun(context.Background(), sampleRecord("R1", "B1"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, b.ids)

	assert.ErrorIs(t, m.Close(), boom)
	assert.True(t, b.closed)
}
