package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/rank"
	"github.com/rustyeddy/pricebt/signal"
)

func readJSON(t *testing.T, path string, v any) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	require.NoError(t, d.Decode(v))
}

func TestSummaryFile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ma_summary.json", SummaryFile(signal.FamilySingleMA))
	assert.Equal(t, "ma_crossover_summary.json", SummaryFile(signal.FamilyDualMA))
	assert.Equal(t, "rsi_summary.json", SummaryFile(signal.FamilyRSI))
	assert.Equal(t, "bollinger_summary.json", SummaryFile(signal.FamilyBollinger))
}

func TestJSONDirRecordRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewJSONDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, j.Dir())
	require.NoError(t, j.RecordRun(context.Background(), sampleRecord("R1", "B1")))

	var trades []map[string]any
	readJSON(t, filepath.Join(dir, "trades_ma_5_20.json"), &trades)
	require.Len(t, trades, 2)
	assert.Equal(t, "2024-02-02", trades[0]["entry_date"])
	assert.Equal(t, json.Number("110.50"), trades[0]["exit_price"])
	assert.Equal(t, json.Number("-4.00"), trades[1]["profit"])
	assert.Equal(t, "end_of_series", trades[1]["reason"])

	var equity []map[string]any
	readJSON(t, filepath.Join(dir, "equity_curve_ma_5_20.json"), &equity)
	require.Len(t, equity, 6)
	assert.Equal(t, "2024-02-01", equity[0]["date"])
	assert.Equal(t, json.Number("0.00"), equity[0]["equity"])
}

func TestJSONDirRecordEmptyRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewJSONDir(dir)
	require.NoError(t, err)

	rec := sampleRecord("R1", "B1")
	rec.Trades, rec.Equity = []backtest.Trade{}, nil
	require.NoError(t, j.RecordRun(context.Background(), rec))

	data, err := os.ReadFile(filepath.Join(dir, "trades_ma_5_20.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))

	data, err = os.ReadFile(filepath.Join(dir, "equity_curve_ma_5_20.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}

func TestJSONDirWriteSummaries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewJSONDir(dir)
	require.NoError(t, err)

	dual := sampleRecord("R1", "B1").Summary
	rsi := backtest.Result{Config: signal.Config{Family: signal.FamilyRSI, Period: 14, Buy: signal.DefaultRSIBuy, Sell: signal.DefaultRSISell}}.Summary()

	require.NoError(t, j.WriteSummaries([]rank.Family{
		{Name: signal.FamilyDualMA, Summaries: []backtest.Summary{dual}},
		{Name: signal.FamilyRSI, Summaries: []backtest.Summary{rsi}},
	}))

	var got []map[string]any
	readJSON(t, filepath.Join(dir, "ma_crossover_summary.json"), &got)
	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, "dual_ma", s["strategy"])
	assert.Equal(t, json.Number("5"), s["short_ma"])
	assert.Equal(t, json.Number("20"), s["long_ma"])
	assert.NotContains(t, s, "buy_level")
	assert.Equal(t, json.Number("2"), s["num_trades"])
	assert.Equal(t, json.Number("0.5"), s["win_rate"])
	pf, err := s["profit_factor"].(json.Number).Float64()
	require.NoError(t, err)
	assert.InDelta(t, 2.5938, pf, 1e-9)
	assert.Equal(t, json.Number("-4.00"), s["last_trade"].(map[string]any)["profit"])

	got = nil
	readJSON(t, filepath.Join(dir, "rsi_summary.json"), &got)
	require.Len(t, got, 1)
	assert.Equal(t, json.Number("14"), got[0]["period"])
	assert.Equal(t, json.Number("30"), got[0]["buy_level"])
	assert.Equal(t, json.Number("70"), got[0]["sell_level"])
	assert.Equal(t, json.Number("0"), got[0]["profit_factor"])
	assert.Equal(t, json.Number("0.00"), got[0]["total_profit"])
	assert.Nil(t, got[0]["first_trade"])
	assert.Contains(t, got[0], "first_trade")
}

func TestJSONDirWriteRanking(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewJSONDir(dir)
	require.NoError(t, err)

	dual := sampleRecord("R1", "B1").Summary
	winner := dual
	winner.Config = signal.Config{Family: signal.FamilySingleMA, Period: 14}
	winner.TotalProfit = dec("50")
	winner.ProfitFactor = math.Inf(1)

	r := rank.Rank([]rank.Family{
		{Name: signal.FamilyDualMA, Summaries: []backtest.Summary{dual}},
		{Name: signal.FamilySingleMA, Summaries: []backtest.Summary{winner}},
	})
	require.NoError(t, j.WriteRanking(r))

	raw, err := os.ReadFile(filepath.Join(dir, RankingFile))
	require.NoError(t, err)
	text := string(raw)
	assert.Less(t, strings.Index(text, `"dual_ma"`), strings.Index(text, `"single_ma"`))
	assert.Less(t, strings.Index(text, `"single_ma"`), strings.Index(text, `"overall_best_by_total_profit"`))

	var got map[string]map[string]any
	readJSON(t, filepath.Join(dir, RankingFile), &got)
	assert.Equal(t, json.Number("1"), got["dual_ma"]["total_configs"])

	overall := got["overall_best_by_total_profit"]
	assert.Equal(t, "single_ma", overall["strategy"])
	cfg := overall["config"].(map[string]any)
	assert.Equal(t, json.Number("50.00"), cfg["total_profit"])
	assert.Equal(t, "Infinity", cfg["profit_factor"])
}

func TestJSONDirWriteRankingEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewJSONDir(dir)
	require.NoError(t, err)
	require.NoError(t, j.WriteRanking(rank.Rank(nil)))

	var got map[string]any
	readJSON(t, filepath.Join(dir, RankingFile), &got)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "overall_best_by_total_profit")
	assert.Nil(t, got["overall_best_by_total_profit"])
}

func TestRatioMarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.5, "0.5"},
		{1.0 / 3.0, "0.3333"},
		{math.Inf(1), `"Infinity"`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(ratio(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}
