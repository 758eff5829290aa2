package market

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// enrichedRow mirrors one record of the enriched history file produced by the
// data pipeline. Period keys arrive as strings and values may be null.
type enrichedRow struct {
	Date       string               `json:"date"`
	Timestamp  *int64               `json:"timestamp"`
	Price      *decimal.Decimal     `json:"price"`
	Indicators enrichedIndicatorSet `json:"indicators"`
}

type enrichedIndicatorSet struct {
	MA        map[string]*decimal.Decimal `json:"ma"`
	RSI       map[string]*decimal.Decimal `json:"rsi"`
	Std       map[string]*decimal.Decimal `json:"std"`
	Bollinger map[string]*bandPair        `json:"bollinger"`
}

type bandPair struct {
	Upper *decimal.Decimal `json:"upper"`
	Lower *decimal.Decimal `json:"lower"`
}

// LoadEnrichedFile reads an enriched history file from disk.
func LoadEnrichedFile(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("market: open %s: %w", path, err)
	}
	defer f.Close()

	s, err := LoadEnriched(f)
	if err != nil {
		return nil, fmt.Errorf("market: %s: %w", path, err)
	}
	return s, nil
}

// LoadEnriched decodes an enriched history array. String period keys are
// parsed once here so that strategy runs only ever see typed keys. Keys that
// are not integers are ignored.
func LoadEnriched(r io.Reader) (Series, error) {
	var rows []enrichedRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode enriched data: %w", err)
	}

	out := make(Series, 0, len(rows))
	for i, row := range rows {
		date, err := row.date()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		p := PricePoint{Date: date}
		if row.Price != nil {
			p.Price = decimal.NewNullDecimal(*row.Price)
		}

		in := row.Indicators
		setAll(&p.Indicators, MA, in.MA)
		setAll(&p.Indicators, RSI, in.RSI)
		setAll(&p.Indicators, StdDev, in.Std)
		for key, band := range in.Bollinger {
			period, ok := parsePeriod(key)
			if !ok || band == nil {
				continue
			}
			if band.Upper != nil {
				p.Indicators.Set(BollingerUpper, period, *band.Upper)
			}
			if band.Lower != nil {
				p.Indicators.Set(BollingerLower, period, *band.Lower)
			}
		}

		out = append(out, p)
	}
	return out, nil
}

func (row enrichedRow) date() (time.Time, error) {
	if row.Date != "" {
		t, err := ParseDate(strings.TrimSpace(row.Date))
		if err != nil {
			return time.Time{}, fmt.Errorf("bad date %q: %w", row.Date, err)
		}
		return t, nil
	}
	if row.Timestamp != nil {
		return Day(time.UnixMilli(*row.Timestamp)), nil
	}
	return time.Time{}, fmt.Errorf("missing date")
}

func setAll(in *Indicators, kind Kind, values map[string]*decimal.Decimal) {
	for key, v := range values {
		period, ok := parsePeriod(key)
		if !ok || v == nil {
			continue
		}
		in.Set(kind, period, *v)
	}
}

func parsePeriod(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
