// Package signal decides when a single long position should be opened or
// closed. Detectors are pure: they look only at the readings they are given
// and never at the position, which the ledger gates on.
package signal

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/pricebt/market"
)

// Action is the outcome of evaluating a rule on one point.
type Action int8

const (
	NoAction Action = iota
	Open
	Close
	// OpenOrClose is reported when the open and close edges fire on the same
	// point. The ledger opens when flat and closes when long.
	OpenOrClose
)

func (a Action) String() string {
	switch a {
	case Open:
		return "open"
	case Close:
		return "close"
	case OpenOrClose:
		return "open_or_close"
	default:
		return "none"
	}
}

// Opens reports whether a flat ledger should open on a.
func (a Action) Opens() bool { return a == Open || a == OpenOrClose }

// Closes reports whether a long ledger should close on a.
func (a Action) Closes() bool { return a == Close || a == OpenOrClose }

// Rule evaluates one strategy family over a series, one point at a time.
//
// Step reports the action for p and whether every input the rule needs at p
// was present. When ok is false the action is always NoAction and the caller
// must skip trading logic for p.
type Rule interface {
	Name() string
	Config() Config
	Reset()
	Step(p market.PricePoint) (a Action, ok bool)
}

// CrossedAbove reports a strict upward cross of a over b between two steps.
// Equality at either step is not a cross.
func CrossedAbove(prevA, prevB, a, b decimal.Decimal) bool {
	return prevA.LessThan(prevB) && a.GreaterThan(b)
}

// CrossedBelow reports a strict downward cross of a under b.
func CrossedBelow(prevA, prevB, a, b decimal.Decimal) bool {
	return prevA.GreaterThan(prevB) && a.LessThan(b)
}

// Reading is the set of values a rule looked at on one step. A and B are the
// two series a rule compares (fast/slow for moving averages, lower/upper for
// Bollinger bands).
type Reading struct {
	Price decimal.NullDecimal
	A     decimal.NullDecimal
	B     decimal.NullDecimal
}

// complete reports whether every field is present.
func (r Reading) complete() bool {
	return r.Price.Valid && r.A.Valid && r.B.Valid
}

// history is the small state record edge-detecting rules carry between steps.
type history struct {
	prev *Reading
}

// advance records cur as the previous reading and returns what was there
// before. Absent fields are carried as absent so a gap blocks the next cross.
func (h *history) advance(cur Reading) *Reading {
	prev := h.prev
	h.prev = &cur
	return prev
}

func (h *history) reset() { h.prev = nil }
