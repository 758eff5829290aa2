package journal

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/market"
	"github.com/rustyeddy/pricebt/rank"
)

var orgFuncs = template.FuncMap{
	"date":  market.FormatDate,
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"pct":   func(x float64) string { return fmt.Sprintf("%.2f", x*100) },
	"pf":    formatProfitFactor,
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"last": func(eq []backtest.EquityPoint) int { return len(eq) - 1 },
}

var runOrg = template.Must(template.New("run").Funcs(orgFuncs).Parse(runOrgTemplate))

const runOrgTemplate = `* BACKTEST: {{.Summary.Config}}{{if .Dataset}} on {{.Dataset}}{{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:BATCH_ID:    {{if .BatchID}}{{.BatchID}}{{else}}(batch-id?){{end}}
:STRATEGY:    {{.Summary.Config.Family}}
:CONFIG:      {{.Summary.Config.Slug}}
{{- if .Equity}}
:START_DATE:  {{date (index .Equity 0).Date}}
:END_DATE:    {{date (index .Equity (last .Equity)).Date}}
{{- end}}
:NET_PL:      {{money .Summary.TotalProfit}}
:MAX_DD:      {{money .Summary.MaxDrawdown}}
:TRADES:      {{.Summary.NumTrades}}
:WINS:        {{.Summary.Wins}}
:LOSSES:      {{.Summary.Losses}}
:WIN_RATE:    {{pct .Summary.WinRate}}
:PROFIT_FAC:  {{pf .Summary.ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{money .Summary.TotalProfit}}*
- Avg per Trade:    *{{money .Summary.AvgProfitPerTrade}}*
- Max Drawdown:     *{{money .Summary.MaxDrawdown}}*
- Win Rate:         *{{pct .Summary.WinRate}}%*
- Profit Factor:    *{{pf .Summary.ProfitFactor}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Summary.Wins}} |
| Losses  | {{.Summary.Losses}} |
| Total   | {{.Summary.NumTrades}} |
{{- if .Trades}}

** Trades
| Entry | Entry Price | Exit | Exit Price | Profit | Cumulative | Reason |
|-------+-------------+------+------------+--------+------------+--------|
{{- range .Trades}}
| {{date .EntryDate}} | {{money .EntryPrice}} | {{date .ExitDate}} | {{money .ExitPrice}} | {{money .Profit}} | {{money .CumulativeProfit}} | {{.Reason}} |
{{- end}}
{{- end}}
`

// FormatSummaryOrg renders a run as an Org-mode block for research notes.
// Structured facts go in a PROPERTIES drawer so they stay searchable.
func FormatSummaryOrg(r RunRecord) (string, error) {
	var buf bytes.Buffer
	if err := runOrg.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("journal: org for %s: %w", r.RunID, err)
	}
	return buf.String(), nil
}

// FormatRankingOrg renders a ranking as an Org-mode table.
func FormatRankingOrg(r rank.Ranking) string {
	var b strings.Builder
	b.WriteString("* Best strategies by total profit\n")
	if r.Overall != nil {
		b.WriteString(":PROPERTIES:\n")
		b.WriteString(fmt.Sprintf(":OVERALL_STRATEGY: %s\n", r.Overall.Strategy))
		b.WriteString(fmt.Sprintf(":OVERALL_CONFIG: %s\n", r.Overall.Config))
		b.WriteString(fmt.Sprintf(":OVERALL_PROFIT: %s\n", r.Overall.Summary.TotalProfit.StringFixed(2)))
		b.WriteString(":END:\n")
	}
	b.WriteString("\n")
	b.WriteString("| Strategy | Best Config | Configs | Trades | Win Rate % | Profit Factor | Max DD | Total Profit |\n")
	b.WriteString("|----------+-------------+---------+--------+------------+---------------+--------+--------------|\n")
	for _, f := range r.Families {
		s := f.Best
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f | %s | %s | %s |\n",
			f.Strategy, s.Config, f.TotalConfigs, s.NumTrades, s.WinRate*100,
			formatProfitFactor(s.ProfitFactor), s.MaxDrawdown.StringFixed(2), s.TotalProfit.StringFixed(2)))
	}
	return b.String()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
