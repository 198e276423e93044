package position

import (
	"sort"
	"time"

	"github.com/syntharb/syntharb/internal/domain"
)

// recomputeMetricsLocked rebuilds the aggregate portfolio view. Called after
// every position mutation; caller holds t.mu.
func (t *Tracker) recomputeMetricsLocked() {
	m := domain.PortfolioMetrics{
		CountsByStatus: make(map[domain.PositionStatus]int),
		ComputedAt:     t.now(),
	}

	var (
		var95Sum, var99Sum float64
		wins, closed       int
		holdingTotal       time.Duration
	)
	for _, pos := range t.positions {
		m.CountsByStatus[pos.Status]++
		m.TotalExpectedPnL += pos.Execution.ExpectedPnL
		if pos.Execution.RealizedPnL != nil {
			m.TotalRealizedPnL += *pos.Execution.RealizedPnL
		}
		if pos.Status.Terminal() {
			closed++
			holdingTotal += pos.HoldingTime
			if pos.Execution.RealizedPnL != nil && *pos.Execution.RealizedPnL > 0 {
				wins++
			}
			continue
		}
		m.TotalExposure += pos.Risk.Exposure
		var95Sum += pos.Risk.VaR95
		var99Sum += pos.Risk.VaR99
	}

	// Portfolio VaR assumes positions are imperfectly correlated: the sum of
	// individual VaRs is dampened by a fixed factor.
	m.PortfolioVaR95 = var95Sum * t.cfg.CorrelationDampening
	m.PortfolioVaR99 = var99Sum * t.cfg.CorrelationDampening

	if closed > 0 {
		m.WinRate = float64(wins) / float64(closed)
		m.AvgHoldingPeriod = holdingTotal / time.Duration(closed)
	}
	if m.PortfolioVaR95 > 0 {
		m.RiskAdjustedReturn = m.TotalRealizedPnL / m.PortfolioVaR95
	}

	t.metrics = m
}

// PortfolioMetrics returns the aggregate view as of the last mutation.
func (t *Tracker) PortfolioMetrics() domain.PortfolioMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := t.metrics
	counts := make(map[domain.PositionStatus]int, len(m.CountsByStatus))
	for k, v := range m.CountsByStatus {
		counts[k] = v
	}
	m.CountsByStatus = counts
	return m
}

// RiskBreakdown returns the per-position risk rows for every non-terminal
// position, largest exposure first.
func (t *Tracker) RiskBreakdown() []domain.PositionRiskEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []domain.PositionRiskEntry
	for _, pos := range t.positions {
		if pos.Status.Terminal() {
			continue
		}
		out = append(out, domain.PositionRiskEntry{
			PositionID: pos.ID,
			EventID:    pos.Opportunity.EventID,
			Status:     pos.Status,
			Exposure:   pos.Risk.Exposure,
			VaR95:      pos.Risk.VaR95,
			VaR99:      pos.Risk.VaR99,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exposure > out[j].Exposure })
	return out
}

// ExportPortfolio returns the full portfolio snapshot for external
// persistence or reporting: all positions, metrics, the complete alert
// history, and the risk breakdown.
func (t *Tracker) ExportPortfolio() domain.PortfolioExport {
	positions := t.Positions(domain.PositionFilter{})
	metrics := t.PortfolioMetrics()
	breakdown := t.RiskBreakdown()

	t.alertMu.RLock()
	alerts := make([]domain.RiskAlert, len(t.alertLog))
	copy(alerts, t.alertLog)
	t.alertMu.RUnlock()

	return domain.PortfolioExport{
		Positions:  positions,
		Metrics:    metrics,
		Alerts:     alerts,
		Breakdown:  breakdown,
		ExportedAt: t.now(),
	}
}
