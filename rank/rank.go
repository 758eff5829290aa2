// Package rank picks the best configuration of each strategy family and the
// best family overall, by total profit.
package rank

import (
	"sort"

	"github.com/rustyeddy/pricebt/backtest"
	"github.com/rustyeddy/pricebt/signal"
)

// Family is the set of summaries produced by one strategy family.
type Family struct {
	Name      string
	Summaries []backtest.Summary
}

// FamilyBest is the winning configuration of one family.
type FamilyBest struct {
	Strategy     string
	Best         backtest.Summary
	TotalConfigs int
}

// Overall is the winning family and its winning configuration.
type Overall struct {
	Strategy string
	Config   signal.Config
	Summary  backtest.Summary
}

// Ranking is the result of ranking a batch.
type Ranking struct {
	Families []FamilyBest
	Overall  *Overall // nil when no family produced a summary
}

// Best returns the index of the summary with the highest total profit. On a
// tie the earlier one is kept. It returns -1 for an empty slice.
func Best(sums []backtest.Summary) int {
	best := -1
	for i := range sums {
		if best < 0 || sums[i].TotalProfit.GreaterThan(sums[best].TotalProfit) {
			best = i
		}
	}
	return best
}

// Rank selects the best configuration per family and the best family overall.
// Families without summaries are left out. Family order is preserved.
func Rank(families []Family) Ranking {
	var r Ranking
	for _, f := range families {
		i := Best(f.Summaries)
		if i < 0 {
			continue
		}
		fb := FamilyBest{Strategy: f.Name, Best: f.Summaries[i], TotalConfigs: len(f.Summaries)}
		r.Families = append(r.Families, fb)

		if r.Overall == nil || fb.Best.TotalProfit.GreaterThan(r.Overall.Summary.TotalProfit) {
			r.Overall = &Overall{Strategy: fb.Strategy, Config: fb.Best.Config, Summary: fb.Best}
		}
	}
	return r
}

var canonical = map[string]int{
	signal.FamilyDualMA:    0,
	signal.FamilySingleMA:  1,
	signal.FamilyRSI:       2,
	signal.FamilyBollinger: 3,
}

// FromMap turns summaries keyed by family name into an ordered family list:
// dual_ma, single_ma, rsi, bollinger, then any other names alphabetically.
func FromMap(m map[string][]backtest.Summary) []Family {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, iok := canonical[names[i]]
		oj, jok := canonical[names[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	out := make([]Family, len(names))
	for i, name := range names {
		out[i] = Family{Name: name, Summaries: m[name]}
	}
	return out
}

// GroupByFamily splits summaries by their configuration family, keeping the
// order they arrived in.
func GroupByFamily(sums []backtest.Summary) []Family {
	m := make(map[string][]backtest.Summary)
	for _, s := range sums {
		m[s.Config.Family] = append(m[s.Config.Family], s)
	}
	return FromMap(m)
}
