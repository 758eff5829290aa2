package journal

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/pkg/id"
	"github.com/rustyeddy/pricebt/signal"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordAndGetRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	want := sampleRecord("R1", "B1")
	require.NoError(t, j.RecordRun(ctx, want))

	got, err := j.GetRun(ctx, "R1")
	require.NoError(t, err)

	assert.Equal(t, "B1", got.BatchID)
	assert.Equal(t, "prices.json", got.Dataset)
	assert.True(t, got.Created.Equal(want.Created))
	assert.Equal(t, want.Summary.Config.String(), got.Summary.Config.String())
	assert.Equal(t, want.Summary.NumTrades, got.Summary.NumTrades)
	assert.Equal(t, want.Summary.Wins, got.Summary.Wins)
	assert.InDelta(t, want.Summary.WinRate, got.Summary.WinRate, 1e-12)
	assert.InDelta(t, want.Summary.ProfitFactor, got.Summary.ProfitFactor, 1e-12)
	assert.True(t, got.Summary.TotalProfit.Equal(dec("6.375")))
	assert.True(t, got.Summary.MaxDrawdown.Equal(want.Summary.MaxDrawdown))

	require.Len(t, got.Trades, 2)
	for i := range want.Trades {
		assert.Equal(t, want.Trades[i].EntryDate, got.Trades[i].EntryDate)
		assert.Equal(t, want.Trades[i].ExitDate, got.Trades[i].ExitDate)
		assert.True(t, want.Trades[i].EntryPrice.Equal(got.Trades[i].EntryPrice))
		assert.True(t, want.Trades[i].Profit.Equal(got.Trades[i].Profit))
		assert.True(t, want.Trades[i].CumulativeProfit.Equal(got.Trades[i].CumulativeProfit))
		assert.Equal(t, want.Trades[i].Reason, got.Trades[i].Reason)
	}
	require.NotNil(t, got.Summary.LastTrade)
	assert.Equal(t, backtest.ReasonEndOfSeries, got.Summary.LastTrade.Reason)

	require.Len(t, got.Equity, len(want.Equity))
	for i := range want.Equity {
		assert.Equal(t, want.Equity[i].Date, got.Equity[i].Date)
		assert.True(t, want.Equity[i].Equity.Equal(got.Equity[i].Equity), "point %d", i)
	}
}

func TestSQLiteInfiniteProfitFactor(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	rec := sampleRecord("R1", "B1")
	rec.Summary.ProfitFactor = math.Inf(1)
	require.NoError(t, j.RecordRun(ctx, rec))

	got, err := j.GetRun(ctx, "R1")
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.Summary.ProfitFactor, 1))
}

func TestSQLiteDuplicateRunRollsBack(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.RecordRun(ctx, sampleRecord("R1", "B1")))
	assert.Error(t, j.RecordRun(ctx, sampleRecord("R1", "B1")))

	trades, err := j.ListTrades(ctx, "R1")
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteBatches(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	_, err := j.LatestBatch(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	older, newer := id.New(), id.New()

	first := sampleRecord(id.New(), older)
	second := sampleRecord(id.New(), older)
	second.Summary.Config = signal.Config{Family: signal.FamilySingleMA, Period: 14}
	third := sampleRecord(id.New(), newer)

	for _, r := range []RunRecord{first, second, third} {
		require.NoError(t, j.RecordRun(ctx, r))
	}

	latest, err := j.LatestBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer, latest)

	batches, err := j.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, newer, batches[0].BatchID)
	assert.Equal(t, 1, batches[0].Runs)
	assert.Equal(t, older, batches[1].BatchID)
	assert.Equal(t, 2, batches[1].Runs)
	assert.False(t, batches[1].Created.IsZero())

	sums, err := j.ListSummaries(ctx, older)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, signal.FamilyDualMA, sums[0].Config.Family)
	assert.Equal(t, signal.FamilySingleMA, sums[1].Config.Family)
	for _, s := range sums {
		require.NotNil(t, s.FirstTrade)
		require.NotNil(t, s.LastTrade)
		assert.Equal(t, day(2), s.FirstTrade.EntryDate)
		assert.True(t, s.FirstTrade.Profit.Equal(dec("10.375")))
		assert.Equal(t, day(6), s.LastTrade.ExitDate)
		assert.True(t, s.LastTrade.CumulativeProfit.Equal(dec("6.375")))
		assert.Equal(t, backtest.ReasonEndOfSeries, s.LastTrade.Reason)
	}

	none, err := j.ListSummaries(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteEmptyRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	res := backtest.Result{Config: signal.Config{Family: signal.FamilyRSI, Period: 7, Buy: signal.DefaultRSIBuy, Sell: signal.DefaultRSISell}}
	rec := NewRunRecord("R0", "B0", "empty.json", time.Now(), backtest.Run{Result: res, Summary: res.Summary()})
	require.NoError(t, j.RecordRun(ctx, rec))

	got, err := j.GetRun(ctx, "R0")
	require.NoError(t, err)
	assert.Empty(t, got.Trades)
	assert.Empty(t, got.Equity)
	assert.Nil(t, got.Summary.FirstTrade)

	sums, err := j.ListSummaries(ctx, "B0")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Nil(t, sums[0].FirstTrade)
	assert.Nil(t, sums[0].LastTrade)
	assert.True(t, got.Summary.Config.Buy.Equal(signal.DefaultRSIBuy))
}
