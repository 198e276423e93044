package stats

import (
	"log/slog"
	"math"
)

// minHedgeRatio is the magnitude below which a cost-adjusted ratio snaps to
// zero: hedging that little is not worth the transaction.
const minHedgeRatio = 0.01

// HedgeRatioResult holds the derived hedge sizing for a correlated pair.
type HedgeRatioResult struct {
	MinVarianceRatio float64 // covariance / variance2
	OptimalRatio     float64 // risk- and cost-adjusted
	RiskReduction    float64 // 0..1, fraction of variance removed
	Efficiency       float64 // 0..1, achieved vs. theoretical maximum
	Confidence       float64
}

// ComputeHedgeRatio derives the minimum-variance and risk-adjusted hedge
// ratios from a covariance result. riskAversion is 0..1; values above 0.5
// scale the ratio linearly toward zero as aversion approaches 1.
// transactionCosts shrink the ratio multiplicatively, and ratios whose
// magnitude falls below 0.01 after cost adjustment snap to 0.
func (e *Engine) ComputeHedgeRatio(cov CovarianceResult, riskAversion, transactionCosts float64) HedgeRatioResult {
	minVar := 0.0
	if cov.Variance2 > 0 {
		minVar = cov.Covariance / cov.Variance2
	}

	optimal := minVar
	if riskAversion > 0.5 {
		optimal *= 2 * (1 - riskAversion)
	}
	optimal *= 1 - clamp(transactionCosts, 0, 1)
	if math.Abs(optimal) < minHedgeRatio {
		optimal = 0
	}

	riskReduction := 0.0
	if cov.Variance1 > 0 {
		portfolioVar := cov.Variance1 + optimal*optimal*cov.Variance2 - 2*optimal*cov.Covariance
		riskReduction = clamp(1-portfolioVar/cov.Variance1, 0, 1)
	}

	// Theoretical maximum reduction is corr^2, achieved at the exact
	// minimum-variance ratio.
	maxReduction := cov.Correlation * cov.Correlation
	efficiency := 0.0
	if maxReduction > 0 {
		efficiency = clamp(riskReduction/maxReduction, 0, 1)
	}

	e.logger.Debug("hedge ratio computed",
		slog.Float64("min_variance_ratio", minVar),
		slog.Float64("optimal_ratio", optimal),
		slog.Float64("risk_reduction", riskReduction),
	)

	return HedgeRatioResult{
		MinVarianceRatio: minVar,
		OptimalRatio:     optimal,
		RiskReduction:    riskReduction,
		Efficiency:       efficiency,
		Confidence:       cov.Confidence,
	}
}
