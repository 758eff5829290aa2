package signal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/pricebt/market"
)

// Strategy family names, also used as artifact and ranking keys.
const (
	FamilySingleMA  = "single_ma"
	FamilyDualMA    = "dual_ma"
	FamilyRSI       = "rsi"
	FamilyBollinger = "bollinger"
)

// Default RSI levels.
var (
	DefaultRSIBuy  = decimal.NewFromInt(30)
	DefaultRSISell = decimal.NewFromInt(70)
)

// Config identifies one configuration of one strategy family.
type Config struct {
	Family string `json:"family"`
	Period int    `json:"period,omitempty"`
	Fast   int    `json:"short_ma,omitempty"`
	Slow   int    `json:"long_ma,omitempty"`

	// RSI levels; zero for other families.
	Buy  decimal.Decimal `json:"buy_level,omitzero"`
	Sell decimal.Decimal `json:"sell_level,omitzero"`
}

func (c Config) String() string {
	switch c.Family {
	case FamilyDualMA:
		return fmt.Sprintf("%s(%d,%d)", c.Family, c.Fast, c.Slow)
	case FamilyRSI:
		return fmt.Sprintf("%s(%d,%s/%s)", c.Family, c.Period, c.Buy, c.Sell)
	default:
		return fmt.Sprintf("%s(%d)", c.Family, c.Period)
	}
}

// Slug is a file-name friendly identifier, e.g. "ma_5_20" or "rsi_14".
func (c Config) Slug() string {
	switch c.Family {
	case FamilySingleMA:
		return fmt.Sprintf("ma_%d", c.Period)
	case FamilyDualMA:
		return fmt.Sprintf("ma_%d_%d", c.Fast, c.Slow)
	default:
		return fmt.Sprintf("%s_%d", c.Family, c.Period)
	}
}

// Requires lists the indicator series a rule for c reads.
func (c Config) Requires() []market.Key {
	switch c.Family {
	case FamilySingleMA:
		return []market.Key{{Kind: market.MA, Period: c.Period}}
	case FamilyDualMA:
		return []market.Key{{Kind: market.MA, Period: c.Fast}, {Kind: market.MA, Period: c.Slow}}
	case FamilyRSI:
		return []market.Key{{Kind: market.RSI, Period: c.Period}}
	case FamilyBollinger:
		return []market.Key{
			{Kind: market.BollingerLower, Period: c.Period},
			{Kind: market.BollingerUpper, Period: c.Period},
		}
	}
	return nil
}

// NewRule builds the rule for c.
func NewRule(c Config) (Rule, error) {
	switch c.Family {
	case FamilySingleMA:
		if c.Period <= 0 {
			return nil, fmt.Errorf("signal: %s: period must be positive", c.Family)
		}
		return NewSingleMA(c.Period), nil
	case FamilyDualMA:
		if c.Fast <= 0 || c.Slow <= 0 {
			return nil, fmt.Errorf("signal: %s: periods must be positive", c.Family)
		}
		return NewDualMA(c.Fast, c.Slow), nil
	case FamilyRSI:
		if c.Period <= 0 {
			return nil, fmt.Errorf("signal: %s: period must be positive", c.Family)
		}
		buy, sell := c.Buy, c.Sell
		if buy.IsZero() && sell.IsZero() {
			buy, sell = DefaultRSIBuy, DefaultRSISell
		}
		return NewRSI(c.Period, buy, sell), nil
	case FamilyBollinger:
		if c.Period <= 0 {
			return nil, fmt.Errorf("signal: %s: period must be positive", c.Family)
		}
		return NewBollinger(c.Period), nil
	default:
		return nil, fmt.Errorf("signal: unknown family %q", c.Family)
	}
}
