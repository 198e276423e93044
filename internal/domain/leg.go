package domain

import (
	"fmt"
	"time"
)

// MarketType classifies the wager a leg belongs to.
type MarketType string

const (
	MarketTypeMoneyline MarketType = "moneyline"
	MarketTypeSpread    MarketType = "spread"
	MarketTypeTotal     MarketType = "total"
	MarketTypeProp      MarketType = "prop"
)

// MarketLeg is an immutable snapshot of one venue's price for one side of a
// market. A newer leg with the same Key supersedes it; legs are never mutated
// in place.
type MarketLeg struct {
	Venue      string
	EventID    string
	Period     string // period tag, e.g. "first-quarter", "full-game"
	MarketType MarketType
	Price      int      // American odds, signed
	Line       *float64 // spread / total line when applicable
	Volume     float64
	Sharp      bool // flagged as sharp-book pricing
	UpdatedAt  time.Time
}

// Key identifies the slot a leg occupies; a newer leg with the same key
// replaces the older one.
func (l MarketLeg) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", l.Venue, l.EventID, l.Period, l.MarketType)
}

// ImpliedProbability converts the leg's American odds into a break-even win
// probability. Zero odds yield zero probability.
func (l MarketLeg) ImpliedProbability() float64 {
	return ImpliedProbability(l.Price)
}

// ImpliedProbability converts American odds to an implied probability:
// 100/(odds+100) for positive odds, |odds|/(|odds|+100) for negative odds.
func ImpliedProbability(odds int) float64 {
	switch {
	case odds > 0:
		return 100.0 / (float64(odds) + 100.0)
	case odds < 0:
		abs := float64(-odds)
		return abs / (abs + 100.0)
	default:
		return 0
	}
}
