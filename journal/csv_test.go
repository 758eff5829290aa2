package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVRecordRun(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	j, err := NewCSV(dir)
	require.NoError(t, err)

	require.NoError(t, j.RecordRun(context.Background(), sampleRecord("R1", "B1")))
	require.NoError(t, j.Close())

	trades := readCSV(t, filepath.Join(dir, "trades_ma_5_20.csv"))
	require.Len(t, trades, 3)
	assert.Equal(t, tradeHeader, trades[0])
	assert.Equal(t, []string{"2024-02-02", "100.125", "2024-02-04", "110.5", "10.375", "10.375", "signal"}, trades[1])
	assert.Equal(t, []string{"2024-02-05", "112", "2024-02-06", "108", "-4", "6.375", "end_of_series"}, trades[2])

	equity := readCSV(t, filepath.Join(dir, "equity_curve_ma_5_20.csv"))
	require.Len(t, equity, 7)
	assert.Equal(t, equityHeader, equity[0])
	assert.Equal(t, []string{"2024-02-03", "4.875"}, equity[3])
}

func TestCSVEmptyRunWritesHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	rec := sampleRecord("R1", "B1")
	rec.Trades, rec.Equity = nil, nil
	require.NoError(t, j.RecordRun(context.Background(), rec))

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, filepath.Join(dir, "trades_ma_5_20.csv")))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, filepath.Join(dir, "equity_curve_ma_5_20.csv")))
}
