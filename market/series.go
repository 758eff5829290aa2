// Package market holds the price series a backtest walks and the typed
// indicator values precomputed for each date.
package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the day-resolution layout used for every date on the wire.
const DateLayout = "2006-01-02"

// ErrUnordered is returned when a series is not strictly increasing by date.
var ErrUnordered = errors.New("series is not in chronological order")

// PricePoint is one dated observation of an asset. Price may be absent.
type PricePoint struct {
	Date       time.Time
	Price      decimal.NullDecimal
	Indicators Indicators
}

// Series is the ordered price history for one asset. It is read-only once
// loaded and may be shared by any number of concurrent runs.
type Series []PricePoint

// Validate reports ErrUnordered if any date does not strictly follow the one
// before it. An empty series is valid.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("%w: index %d (%s) does not follow %s", ErrUnordered,
				i, FormatDate(s[i].Date), FormatDate(s[i-1].Date))
		}
	}
	return nil
}

// LastPriced returns the latest point that carries a price.
func (s Series) LastPriced() (PricePoint, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Price.Valid {
			return s[i], true
		}
	}
	return PricePoint{}, false
}

// Start and End return the first and last dates, or zero times when empty.
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

func (s Series) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(v string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, v, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
