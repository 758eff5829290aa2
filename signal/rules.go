package signal

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/pricebt/market"
)

// SingleMA opens when price crosses above its moving average and closes when
// price crosses back below it.
type SingleMA struct {
	Period int
	h      history
}

func NewSingleMA(period int) *SingleMA { return &SingleMA{Period: period} }

func (r *SingleMA) Name() string   { return r.Config().String() }
func (r *SingleMA) Config() Config { return Config{Family: FamilySingleMA, Period: r.Period} }
func (r *SingleMA) Reset()         { r.h.reset() }

func (r *SingleMA) Step(p market.PricePoint) (Action, bool) {
	cur := Reading{Price: p.Price, A: p.Price, B: p.Indicators.Get(market.MA, r.Period)}
	return maCross(r.h.advance(cur), cur)
}

// DualMA opens when the fast average crosses above the slow one and closes on
// the opposite cross.
type DualMA struct {
	Fast int
	Slow int
	h    history
}

func NewDualMA(fast, slow int) *DualMA { return &DualMA{Fast: fast, Slow: slow} }

func (r *DualMA) Name() string { return r.Config().String() }
func (r *DualMA) Config() Config {
	return Config{Family: FamilyDualMA, Fast: r.Fast, Slow: r.Slow}
}
func (r *DualMA) Reset() { r.h.reset() }

func (r *DualMA) Step(p market.PricePoint) (Action, bool) {
	cur := Reading{
		Price: p.Price,
		A:     p.Indicators.Get(market.MA, r.Fast),
		B:     p.Indicators.Get(market.MA, r.Slow),
	}
	return maCross(r.h.advance(cur), cur)
}

// maCross compares A against B on consecutive readings.
func maCross(prev *Reading, cur Reading) (Action, bool) {
	if !cur.complete() {
		return NoAction, false
	}
	if prev == nil || !prev.A.Valid || !prev.B.Valid {
		return NoAction, true
	}
	switch {
	case CrossedAbove(prev.A.Decimal, prev.B.Decimal, cur.A.Decimal, cur.B.Decimal):
		return Open, true
	case CrossedBelow(prev.A.Decimal, prev.B.Decimal, cur.A.Decimal, cur.B.Decimal):
		return Close, true
	}
	return NoAction, true
}

// RSI is a level rule: it signals Open whenever RSI is below Buy and Close
// whenever it is above Sell. No previous value is involved.
type RSI struct {
	Period int
	Buy    decimal.Decimal
	Sell   decimal.Decimal
}

func NewRSI(period int, buy, sell decimal.Decimal) *RSI {
	return &RSI{Period: period, Buy: buy, Sell: sell}
}

func (r *RSI) Name() string { return r.Config().String() }
func (r *RSI) Config() Config {
	return Config{Family: FamilyRSI, Period: r.Period, Buy: r.Buy, Sell: r.Sell}
}
func (r *RSI) Reset() {}

func (r *RSI) Step(p market.PricePoint) (Action, bool) {
	rsi, ok := p.Indicators.Lookup(market.RSI, r.Period)
	if !ok || !p.Price.Valid {
		return NoAction, false
	}
	return Threshold(rsi, r.Buy, r.Sell), true
}

// Threshold maps an oscillator value onto an action using fixed levels.
func Threshold(v, buy, sell decimal.Decimal) Action {
	switch {
	case v.LessThan(buy):
		return Open
	case v.GreaterThan(sell):
		return Close
	}
	return NoAction
}

// Bollinger opens when price breaks down through the lower band and closes
// when price breaks up through the upper band.
type Bollinger struct {
	Period int
	h      history
}

func NewBollinger(period int) *Bollinger { return &Bollinger{Period: period} }

func (r *Bollinger) Name() string   { return r.Config().String() }
func (r *Bollinger) Config() Config { return Config{Family: FamilyBollinger, Period: r.Period} }
func (r *Bollinger) Reset()         { r.h.reset() }

func (r *Bollinger) Step(p market.PricePoint) (Action, bool) {
	cur := Reading{
		Price: p.Price,
		A:     p.Indicators.Get(market.BollingerLower, r.Period),
		B:     p.Indicators.Get(market.BollingerUpper, r.Period),
	}
	prev := r.h.advance(cur)
	if !cur.complete() {
		return NoAction, false
	}
	if prev == nil || !prev.Price.Valid {
		return NoAction, true
	}

	px := cur.Price.Decimal
	// Each edge only needs the band it crosses. Both can fire only when the
	// bands are inverted.
	open := prev.A.Valid && CrossedBelow(prev.Price.Decimal, prev.A.Decimal, px, cur.A.Decimal)
	closed := prev.B.Valid && CrossedAbove(prev.Price.Decimal, prev.B.Decimal, px, cur.B.Decimal)
	switch {
	case open && closed:
		return OpenOrClose, true
	case open:
		return Open, true
	case closed:
		return Close, true
	}
	return NoAction, true
}
