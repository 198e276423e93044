package arbitrage

import (
	"fmt"

	"github.com/syntharb/syntharb/internal/domain"
)

// ValidationReport is the outcome of validating one opportunity. Errors make
// the opportunity invalid; warnings do not.
type ValidationReport struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Validate checks an opportunity for structural errors (missing id, no legs,
// no markets, negative expected return, fewer than two venues) and soft
// warnings (risk score or leg count above the configured maximums).
func (d *Detector) Validate(opp domain.ArbitrageOpportunity) ValidationReport {
	var report ValidationReport

	if opp.ID == "" {
		report.Errors = append(report.Errors, "missing opportunity id")
	}
	if len(opp.Legs) == 0 {
		report.Errors = append(report.Errors, "no legs")
	}
	markets := make(map[domain.MarketType]bool)
	for _, leg := range opp.Legs {
		markets[leg.MarketType] = true
	}
	if len(markets) == 0 {
		report.Errors = append(report.Errors, "no markets")
	}
	if opp.Return.Percent < 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("negative expected return %.4f", opp.Return.Percent))
	}
	if len(opp.Venues) < 2 {
		report.Errors = append(report.Errors, fmt.Sprintf("only %d venue(s), need at least 2", len(opp.Venues)))
	}

	if opp.Risk.Score > d.cfg.MaxRiskScore {
		report.Warnings = append(report.Warnings, fmt.Sprintf("risk score %.2f above max %.2f", opp.Risk.Score, d.cfg.MaxRiskScore))
	}
	if len(opp.Legs) > d.cfg.MaxLegs {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d legs above max %d", len(opp.Legs), d.cfg.MaxLegs))
	}

	report.Valid = len(report.Errors) == 0
	return report
}
