package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/market"
	"github.com/rustyeddy/pricebt/rank"
	"github.com/rustyeddy/pricebt/signal"
)

// RankingFile is the combined per-family and overall ranking artifact.
const RankingFile = "best_strategies_summary.json"

// SummaryFile returns the artifact name for a family's summaries.
func SummaryFile(family string) string {
	switch family {
	case signal.FamilySingleMA:
		return "ma_summary.json"
	case signal.FamilyDualMA:
		return "ma_crossover_summary.json"
	default:
		return family + "_summary.json"
	}
}

// JSONDir writes the JSON artifacts of a batch into one directory.
// Monetary values are rounded to two fraction digits.
type JSONDir struct {
	dir string
}

func NewJSONDir(dir string) (*JSONDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &JSONDir{dir: dir}, nil
}

func (j *JSONDir) Dir() string { return j.dir }

func (j *JSONDir) RecordRun(_ context.Context, r RunRecord) error {
	slug := r.Summary.Config.Slug()

	trades := make([]tradeJSON, len(r.Trades))
	for i, t := range r.Trades {
		trades[i] = newTradeJSON(t)
	}
	if err := j.write("trades_"+slug+".json", trades); err != nil {
		return err
	}

	equity := make([]equityJSON, len(r.Equity))
	for i, e := range r.Equity {
		equity[i] = equityJSON{Date: market.FormatDate(e.Date), Equity: money(e.Equity)}
	}
	return j.write("equity_curve_"+slug+".json", equity)
}

func (j *JSONDir) Close() error { return nil }

// WriteSummaries writes one summary file per family.
func (j *JSONDir) WriteSummaries(families []rank.Family) error {
	for _, f := range families {
		out := make([]summaryJSON, len(f.Summaries))
		for i, s := range f.Summaries {
			out[i] = newSummaryJSON(s)
		}
		if err := j.write(SummaryFile(f.Name), out); err != nil {
			return err
		}
	}
	return nil
}

// WriteRanking writes the ranking as one object keyed by family name, in
// family order, followed by overall_best_by_total_profit.
func (j *JSONDir) WriteRanking(r rank.Ranking) error {
	return j.write(RankingFile, newRankingJSON(r))
}

func (j *JSONDir) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(j.dir, name), append(data, '\n'), 0644)
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// ratio renders +Inf as the string "Infinity" since JSON has no infinity.
type ratio float64

func (r ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)), nil
}

type tradeJSON struct {
	EntryDate        string      `json:"entry_date"`
	EntryPrice       json.Number `json:"entry_price"`
	ExitDate         string      `json:"exit_date"`
	ExitPrice        json.Number `json:"exit_price"`
	Profit           json.Number `json:"profit"`
	CumulativeProfit json.Number `json:"cumulative_profit"`
	Reason           string      `json:"reason"`
}

func newTradeJSON(t backtest.Trade) tradeJSON {
	return tradeJSON{
		EntryDate:        market.FormatDate(t.EntryDate),
		EntryPrice:       money(t.EntryPrice),
		ExitDate:         market.FormatDate(t.ExitDate),
		ExitPrice:        money(t.ExitPrice),
		Profit:           money(t.Profit),
		CumulativeProfit: money(t.CumulativeProfit),
		Reason:           t.Reason,
	}
}

type equityJSON struct {
	Date   string      `json:"date"`
	Equity json.Number `json:"equity"`
}

type summaryJSON struct {
	Strategy  string       `json:"strategy"`
	Period    int          `json:"period,omitempty"`
	ShortMA   int          `json:"short_ma,omitempty"`
	LongMA    int          `json:"long_ma,omitempty"`
	BuyLevel  *json.Number `json:"buy_level,omitempty"`
	SellLevel *json.Number `json:"sell_level,omitempty"`

	NumTrades         int         `json:"num_trades"`
	Wins              int         `json:"wins"`
	Losses            int         `json:"losses"`
	WinRate           ratio       `json:"win_rate"`
	ProfitFactor      ratio       `json:"profit_factor"`
	AvgProfitPerTrade json.Number `json:"avg_profit_per_trade"`
	MaxDrawdown       json.Number `json:"max_drawdown"`
	TotalProfit       json.Number `json:"total_profit"`
	FirstTrade        *tradeJSON  `json:"first_trade"`
	LastTrade         *tradeJSON  `json:"last_trade"`
}

func newSummaryJSON(s backtest.Summary) summaryJSON {
	out := summaryJSON{
		Strategy:          s.Config.Family,
		Period:            s.Config.Period,
		ShortMA:           s.Config.Fast,
		LongMA:            s.Config.Slow,
		NumTrades:         s.NumTrades,
		Wins:              s.Wins,
		Losses:            s.Losses,
		WinRate:           ratio(s.WinRate),
		ProfitFactor:      ratio(s.ProfitFactor),
		AvgProfitPerTrade: money(s.AvgProfitPerTrade),
		MaxDrawdown:       money(s.MaxDrawdown),
		TotalProfit:       money(s.TotalProfit),
	}
	if s.Config.Family == signal.FamilyRSI {
		buy, sell := json.Number(s.Config.Buy.String()), json.Number(s.Config.Sell.String())
		out.BuyLevel, out.SellLevel = &buy, &sell
	}
	if s.FirstTrade != nil {
		t := newTradeJSON(*s.FirstTrade)
		out.FirstTrade = &t
	}
	if s.LastTrade != nil {
		t := newTradeJSON(*s.LastTrade)
		out.LastTrade = &t
	}
	return out
}

type familyBestJSON struct {
	Best         summaryJSON `json:"best"`
	TotalConfigs int         `json:"total_configs"`
}

type overallJSON struct {
	Strategy string      `json:"strategy"`
	Config   summaryJSON `json:"config"`
}

// rankingJSON keeps family keys in ranking order.
type rankingJSON struct {
	families []rank.FamilyBest
	overall  *rank.Overall
}

func newRankingJSON(r rank.Ranking) rankingJSON {
	return rankingJSON{families: r.Families, overall: r.Overall}
}

func (r rankingJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, f := range r.families {
		if err := writeMember(&buf, f.Strategy, familyBestJSON{
			Best:         newSummaryJSON(f.Best),
			TotalConfigs: f.TotalConfigs,
		}); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}

	var overall *overallJSON
	if r.overall != nil {
		overall = &overallJSON{Strategy: r.overall.Strategy, Config: newSummaryJSON(r.overall.Summary)}
	}
	if err := writeMember(&buf, "overall_best_by_total_profit", overall); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}
