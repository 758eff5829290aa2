package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/pricebt/signal"
)

// Stats are the summary statistics of one run.
type Stats struct {
	NumTrades int
	Wins      int
	Losses    int
	WinRate   float64

	GrossProfit decimal.Decimal
	GrossLoss   decimal.Decimal // non-negative

	// ProfitFactor is +Inf when every closed trade won and 0 when nothing
	// was won.
	ProfitFactor float64

	AvgProfitPerTrade decimal.Decimal
	MaxDrawdown       decimal.Decimal
	TotalProfit       decimal.Decimal
}

// Summary is the per-configuration record that ranking works from.
type Summary struct {
	Config signal.Config
	Stats
	FirstTrade *Trade
	LastTrade  *Trade
}

// Summarize reduces a trade ledger and equity curve to Stats.
func Summarize(trades []Trade, equity []EquityPoint, total decimal.Decimal) Stats {
	s := Stats{
		NumTrades:         len(trades),
		GrossProfit:       decimal.Zero,
		GrossLoss:         decimal.Zero,
		AvgProfitPerTrade: decimal.Zero,
		TotalProfit:       total,
		MaxDrawdown:       MaxDrawdown(equity),
	}

	for _, t := range trades {
		switch t.Profit.Sign() {
		case 1:
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(t.Profit)
		case -1:
			s.Losses++
			s.GrossLoss = s.GrossLoss.Sub(t.Profit)
		}
	}

	if s.NumTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.NumTrades)
		s.AvgProfitPerTrade = total.Div(decimal.NewFromInt(int64(s.NumTrades)))
	}

	switch {
	case s.GrossLoss.IsPositive():
		s.ProfitFactor = s.GrossProfit.Div(s.GrossLoss).InexactFloat64()
	case s.GrossProfit.IsPositive():
		s.ProfitFactor = math.Inf(1)
	}

	return s
}

// MaxDrawdown is the largest fall from a running equity peak. The first point
// sets the initial peak, and the result is never negative.
func MaxDrawdown(equity []EquityPoint) decimal.Decimal {
	maxDD := decimal.Zero
	if len(equity) == 0 {
		return maxDD
	}
	peak := equity[0].Equity
	for _, p := range equity {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if dd := peak.Sub(p.Equity); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

// Summary builds the ranking record for r.
func (r Result) Summary() Summary {
	s := Summary{
		Config: r.Config,
		Stats:  Summarize(r.Trades, r.Equity, r.TotalProfit),
	}
	if n := len(r.Trades); n > 0 {
		first, last := r.Trades[0], r.Trades[n-1]
		s.FirstTrade = &first
		s.LastTrade = &last
	}
	return s
}
