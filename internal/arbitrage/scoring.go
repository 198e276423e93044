package arbitrage

import (
	"math"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

// Volume levels below which confidence is discounted.
const (
	thinVolume     = 10_000
	adequateVolume = 50_000
)

// Staleness thresholds for the freshness discount.
const (
	staleSoft = time.Minute
	staleHard = 5 * time.Minute
)

// scoreConfidence combines volume adequacy, sharp-book presence, and data
// freshness into a bounded 0.05..0.99 score.
func (d *Detector) scoreConfidence(legs []domain.MarketLeg) float64 {
	if len(legs) == 0 {
		return 0.05
	}
	score := 0.8
	now := d.now()

	var volumePenalty float64
	sharpBonus := 0.0
	for _, leg := range legs {
		switch {
		case leg.Volume < thinVolume:
			volumePenalty += 0.15
		case leg.Volume < adequateVolume:
			volumePenalty += 0.05
		}
		if leg.Sharp {
			sharpBonus += 0.10
		}
		age := now.Sub(leg.UpdatedAt)
		switch {
		case age > staleHard:
			volumePenalty += 0.20
		case age > staleSoft:
			volumePenalty += 0.05
		}
	}
	score -= volumePenalty / float64(len(legs))
	if sharpBonus > 0.20 {
		sharpBonus = 0.20
	}
	score += sharpBonus

	return clamp(score, 0.05, 0.99)
}

// scoreRisk combines volume disparity between legs and volume volatility
// (coefficient of variation) into a single bounded score, plus a risk-scaled
// drawdown estimate.
func (d *Detector) scoreRisk(legs []domain.MarketLeg) domain.RiskMetrics {
	if len(legs) == 0 {
		return domain.RiskMetrics{Score: 1}
	}

	minVol, maxVol := math.Inf(1), 0.0
	var sum float64
	for _, leg := range legs {
		if leg.Volume < minVol {
			minVol = leg.Volume
		}
		if leg.Volume > maxVol {
			maxVol = leg.Volume
		}
		sum += leg.Volume
	}
	mean := sum / float64(len(legs))

	disparity := 0.0
	if maxVol > 0 {
		disparity = 1 - minVol/maxVol
	}

	var variance float64
	for _, leg := range legs {
		d := leg.Volume - mean
		variance += d * d
	}
	variance /= float64(len(legs))
	cv := 0.0
	if mean > 0 {
		cv = math.Sqrt(variance) / mean
	}

	score := clamp(0.5*disparity+0.5*math.Min(cv, 1), 0, 1)
	return domain.RiskMetrics{
		Score:       score,
		MaxDrawdown: 0.5 * score,
		Volatility:  cv,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
