package market

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Kind names a precomputed indicator series.
type Kind string

const (
	MA             Kind = "ma"
	RSI            Kind = "rsi"
	BollingerUpper Kind = "bollinger_upper"
	BollingerLower Kind = "bollinger_lower"
	StdDev         Kind = "std"
)

// Key identifies one indicator value on a point.
type Key struct {
	Kind   Kind
	Period int
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%d)", k.Kind, k.Period)
}

// Indicators holds the indicator values materialized for a single date.
// A missing key means the value is absent (warmup, gap, or a period that was
// never computed).
type Indicators map[Key]decimal.Decimal

// Lookup returns the value for kind and period. Unknown periods are reported
// as absent, never as an error.
func (in Indicators) Lookup(kind Kind, period int) (decimal.Decimal, bool) {
	if in == nil {
		return decimal.Decimal{}, false
	}
	v, ok := in[Key{Kind: kind, Period: period}]
	return v, ok
}

// Get is Lookup returning a NullDecimal, which is convenient when the caller
// carries optional readings forward.
func (in Indicators) Get(kind Kind, period int) decimal.NullDecimal {
	v, ok := in.Lookup(kind, period)
	return decimal.NullDecimal{Decimal: v, Valid: ok}
}

// Set stores a value, allocating the map if needed.
func (in *Indicators) Set(kind Kind, period int, v decimal.Decimal) {
	if *in == nil {
		*in = make(Indicators)
	}
	(*in)[Key{Kind: kind, Period: period}] = v
}

// Periods returns the sorted set of periods available for kind anywhere in
// the series.
func (s Series) Periods(kind Kind) []int {
	seen := make(map[int]bool)
	var out []int
	for _, p := range s {
		for k := range p.Indicators {
			if k.Kind == kind && !seen[k.Period] {
				seen[k.Period] = true
				out = append(out, k.Period)
			}
		}
	}
	slices.Sort(out)
	return out
}
