package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/pricebt/market"
	"github.com/rustyeddy/pricebt/signal"
)

// Close reasons recorded on trades.
const (
	ReasonSignal      = "signal"
	ReasonEndOfSeries = "end_of_series"
)

// Trade is one completed round trip of the single long position.
type Trade struct {
	EntryDate        time.Time
	EntryPrice       decimal.Decimal
	ExitDate         time.Time
	ExitPrice        decimal.Decimal
	Profit           decimal.Decimal
	CumulativeProfit decimal.Decimal
	Reason           string
}

// Position is either flat (Open == false) or long from EntryDate.
type Position struct {
	Open       bool
	EntryPrice decimal.Decimal
	EntryDate  time.Time
}

// EquityPoint is the mark-to-market equity on one date of the input series.
type EquityPoint struct {
	Date   time.Time
	Equity decimal.Decimal
}

// Result is everything a single run produces.
type Result struct {
	Config      signal.Config
	Trades      []Trade
	Equity      []EquityPoint
	TotalProfit decimal.Decimal
}

// Engine walks a series with one rule and keeps the ledger for that run.
// An Engine holds no per-run state, so one value may serve concurrent runs.
type Engine struct {
	log *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Run executes rule over series.
//
// Each point is stepped through the rule, Open is honoured only when flat and
// Close only when long, and an equity point is emitted for every input point.
// A position still open after the last point is closed at the last known
// price. That close is appended to the trades without a matching equity point:
// the final equity point already carries the same value as unrealized profit.
func (e *Engine) Run(series market.Series, rule signal.Rule) (Result, error) {
	if rule == nil {
		return Result{}, fmt.Errorf("backtest: rule is required")
	}
	if err := series.Validate(); err != nil {
		return Result{}, fmt.Errorf("backtest: %s: %w", rule.Name(), err)
	}

	rule.Reset()

	res := Result{
		Config: rule.Config(),
		Trades: []Trade{},
		Equity: make([]EquityPoint, 0, len(series)),
	}

	var (
		pos      Position
		realized = decimal.Zero
		equity   = decimal.Zero
	)

	for _, p := range series {
		action, ok := rule.Step(p)
		if ok && p.Price.Valid {
			switch {
			case action.Opens() && !pos.Open:
				pos = Position{Open: true, EntryPrice: p.Price.Decimal, EntryDate: p.Date}
				e.log.Debug("open",
					zap.String("rule", rule.Name()),
					zap.String("date", market.FormatDate(p.Date)),
					zap.String("price", p.Price.Decimal.String()))

			case action.Closes() && pos.Open:
				tr := closePosition(&pos, p.Date, p.Price.Decimal, ReasonSignal)
				res.Trades = append(res.Trades, tr)
				realized = realized.Add(tr.Profit)
				e.log.Debug("close",
					zap.String("rule", rule.Name()),
					zap.String("date", market.FormatDate(p.Date)),
					zap.String("profit", tr.Profit.String()))
			}
		}

		equity = markToMarket(pos, realized, p.Price, equity)
		res.Equity = append(res.Equity, EquityPoint{Date: p.Date, Equity: equity})
	}

	if pos.Open {
		if last, ok := series.LastPriced(); ok {
			tr := closePosition(&pos, last.Date, last.Price.Decimal, ReasonEndOfSeries)
			res.Trades = append(res.Trades, tr)
			e.log.Debug("forced close",
				zap.String("rule", rule.Name()),
				zap.String("date", market.FormatDate(last.Date)),
				zap.String("profit", tr.Profit.String()))
		}
	}

	res.TotalProfit = finalize(res.Trades)
	return res, nil
}

func closePosition(pos *Position, date time.Time, price decimal.Decimal, reason string) Trade {
	tr := Trade{
		EntryDate:  pos.EntryDate,
		EntryPrice: pos.EntryPrice,
		ExitDate:   date,
		ExitPrice:  price,
		Profit:     price.Sub(pos.EntryPrice),
		Reason:     reason,
	}
	*pos = Position{}
	return tr
}

// markToMarket is realized profit when flat and realized plus open profit
// when long. A long position on a point without a price keeps the previous
// equity value.
func markToMarket(pos Position, realized decimal.Decimal, price decimal.NullDecimal, prev decimal.Decimal) decimal.Decimal {
	if !pos.Open {
		return realized
	}
	if !price.Valid {
		return prev
	}
	return realized.Add(price.Decimal.Sub(pos.EntryPrice))
}

// finalize assigns running cumulative profit in trade order and returns the
// total.
func finalize(trades []Trade) decimal.Decimal {
	running := decimal.Zero
	for i := range trades {
		running = running.Add(trades[i].Profit)
		trades[i].CumulativeProfit = running
	}
	return running
}
